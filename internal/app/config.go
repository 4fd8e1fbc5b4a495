package app

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"hotspotd/constant"
	"hotspotd/models/config"

	"gopkg.in/yaml.v3"
)

const cfgFolderLocation = constant.AppConfigDir
const cfgFileLocation = cfgFolderLocation + "/config.yaml"

func (a *App) LoadConfig() error {
	cfgFile, err := os.ReadFile(cfgFileLocation)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	cfg := config.Config{}
	err = yaml.Unmarshal(cfgFile, &cfg)
	if err != nil {
		return fmt.Errorf("failed to unmarshal config file: %w", err)
	}
	err = a.ImportConfig(cfg)
	if err != nil {
		return fmt.Errorf("failed to import config file: %w", err)
	}
	return nil
}

func (a *App) SaveConfig() error {
	out, err := yaml.Marshal(a.ExportConfig())
	if err != nil {
		return fmt.Errorf("failed to marshal config file: %w", err)
	}
	if err := os.MkdirAll(cfgFolderLocation, os.ModePerm); err != nil {
		return fmt.Errorf("failed to create config folder: %w", err)
	}
	if err := os.WriteFile(cfgFileLocation, out, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func (a *App) ImportConfig(cfg config.Config) error {
	if !strings.HasPrefix(cfg.ConfigVersion, "0.1.") {
		return ErrConfigUnsupportedVersion
	}

	if cfg.App != nil {
		if cfg.App.Hotspot != nil {
			if cfg.App.Hotspot.SSID != nil {
				a.config.Hotspot.SSID = *cfg.App.Hotspot.SSID
			}
			if cfg.App.Hotspot.Passphrase != nil {
				a.config.Hotspot.Passphrase = *cfg.App.Hotspot.Passphrase
			}
			if cfg.App.Hotspot.Channel != nil {
				a.config.Hotspot.Channel = *cfg.App.Hotspot.Channel
			}
			if cfg.App.Hotspot.Gateway != nil {
				a.config.Hotspot.Gateway = *cfg.App.Hotspot.Gateway
			}
			if cfg.App.Hotspot.LeaseTime != nil {
				a.config.Hotspot.LeaseTime = *cfg.App.Hotspot.LeaseTime
			}
			if cfg.App.Hotspot.UpstreamDNS != nil {
				a.config.Hotspot.UpstreamDNS = *cfg.App.Hotspot.UpstreamDNS
			}
			if cfg.App.Hotspot.PreferDelegate != nil {
				a.config.Hotspot.PreferDelegate = *cfg.App.Hotspot.PreferDelegate
			}
			if cfg.App.Hotspot.AutoStart != nil {
				a.config.Hotspot.AutoStart = *cfg.App.Hotspot.AutoStart
			}
		}

		if cfg.App.Interfaces != nil {
			if cfg.App.Interfaces.STA != nil {
				a.config.Interfaces.STA = *cfg.App.Interfaces.STA
			}
			if cfg.App.Interfaces.WAN != nil {
				a.config.Interfaces.WAN = *cfg.App.Interfaces.WAN
			}
			if cfg.App.Interfaces.Exclude != nil {
				a.config.Interfaces.Exclude = *cfg.App.Interfaces.Exclude
			}
		}

		if cfg.App.HTTPAPI != nil {
			if cfg.App.HTTPAPI.Enabled != nil {
				a.config.HTTPAPI.Enabled = *cfg.App.HTTPAPI.Enabled
			}
			if cfg.App.HTTPAPI.Host != nil {
				if cfg.App.HTTPAPI.Host.Address != nil {
					a.config.HTTPAPI.Host.Address = *cfg.App.HTTPAPI.Host.Address
				}
				if cfg.App.HTTPAPI.Host.Port != nil {
					a.config.HTTPAPI.Host.Port = *cfg.App.HTTPAPI.Host.Port
				}
			}
		}

		if cfg.App.LogLevel != nil {
			a.config.LogLevel = *cfg.App.LogLevel
		}
	}

	return nil
}

func (a *App) ExportConfig() config.Config {
	return config.Config{
		ConfigVersion: "0.1.0",
		App: &config.App{
			Hotspot: &config.Hotspot{
				SSID:           &a.config.Hotspot.SSID,
				Passphrase:     &a.config.Hotspot.Passphrase,
				Channel:        &a.config.Hotspot.Channel,
				Gateway:        &a.config.Hotspot.Gateway,
				LeaseTime:      &a.config.Hotspot.LeaseTime,
				UpstreamDNS:    &a.config.Hotspot.UpstreamDNS,
				PreferDelegate: &a.config.Hotspot.PreferDelegate,
				AutoStart:      &a.config.Hotspot.AutoStart,
			},
			Interfaces: &config.Interfaces{
				STA:     &a.config.Interfaces.STA,
				WAN:     &a.config.Interfaces.WAN,
				Exclude: &a.config.Interfaces.Exclude,
			},
			HTTPAPI: &config.HTTPAPI{
				Enabled: &a.config.HTTPAPI.Enabled,
				Host: &config.APIServer{
					Address: &a.config.HTTPAPI.Host.Address,
					Port:    &a.config.HTTPAPI.Host.Port,
				},
			},
			LogLevel: &a.config.LogLevel,
		},
	}
}
