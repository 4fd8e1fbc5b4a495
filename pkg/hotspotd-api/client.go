// Package hotspotdAPI is the client for the hotspotd control socket, used
// by the CLI and by any external tooling that drives the daemon.
package hotspotdAPI

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"

	"hotspotd/constant"
	"hotspotd/pkg/hotspotd-api/types"
)

const SocketPath = constant.RunDir + "/hotspotd.sock"

type Client struct {
	client *http.Client
}

func NewClient() Client {
	client := &http.Client{
		Transport: &http.Transport{
			DialContext: func(_ context.Context, _, _ string) (net.Conn, error) {
				return net.Dial("unix", SocketPath)
			},
		},
	}
	return Client{client: client}
}

func (c Client) do(method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		bodyJSON, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshalling failed: %w", err)
		}
		reader = bytes.NewReader(bodyJSON)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, "http://unix/api"+path, reader)
	if err != nil {
		return fmt.Errorf("creating request failed: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("executing request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		var errRes types.ErrorRes
		if err := json.NewDecoder(resp.Body).Decode(&errRes); err == nil && errRes.Error != "" {
			return fmt.Errorf("daemon refused: %s", errRes.Error)
		}
		return fmt.Errorf("daemon refused: %s", resp.Status)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding response failed: %w", err)
		}
	}
	return nil
}

func (c Client) StartHotspot() (types.HotspotRes, error) {
	var res types.HotspotRes
	err := c.do(http.MethodPost, "/v1/hotspot/start", nil, &res)
	return res, err
}

func (c Client) StopHotspot() error {
	return c.do(http.MethodPost, "/v1/hotspot/stop", nil, nil)
}

func (c Client) Hotspot() (types.HotspotRes, error) {
	var res types.HotspotRes
	err := c.do(http.MethodGet, "/v1/hotspot", nil, &res)
	return res, err
}

func (c Client) Clients() (types.ClientsRes, error) {
	var res types.ClientsRes
	err := c.do(http.MethodGet, "/v1/hotspot/clients", nil, &res)
	return res, err
}

func (c Client) Policy() (types.PolicyRes, error) {
	var res types.PolicyRes
	err := c.do(http.MethodGet, "/v1/policy", nil, &res)
	return res, err
}

func (c Client) Block(mac string) error {
	return c.do(http.MethodPost, "/v1/policy/block", types.MACReq{MAC: mac}, nil)
}

func (c Client) Unblock(mac string) error {
	return c.do(http.MethodPost, "/v1/policy/unblock", types.MACReq{MAC: mac}, nil)
}

func (c Client) QoS(mac, rate string) error {
	return c.do(http.MethodPost, "/v1/policy/qos", types.QoSReq{MAC: mac, Rate: rate}, nil)
}

func (c Client) Priority(mac string, enabled bool) error {
	return c.do(http.MethodPost, "/v1/policy/priority",
		types.PriorityReq{MAC: mac, Enabled: &enabled}, nil)
}

func (c Client) ResetPolicy() error {
	return c.do(http.MethodPost, "/v1/policy/reset", nil, nil)
}

func (c Client) Logs() (types.LogsRes, error) {
	var res types.LogsRes
	err := c.do(http.MethodGet, "/v1/system/logs", nil, &res)
	return res, err
}

func (c Client) SaveConfig() error {
	return c.do(http.MethodPost, "/v1/system/config/save", nil, nil)
}
