package main

import (
	"fmt"
	"log"
	"os"
	"text/tabwriter"

	hotspotdAPI "hotspotd/pkg/hotspotd-api"

	"github.com/spf13/cobra"
)

var hotspotClient hotspotdAPI.Client

func init() {
	hotspotClient = hotspotdAPI.NewClient()
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "hotspotctl",
		Short: "Control the hotspotd daemon",
	}
	rootCmd.AddCommand(
		startCmd(),
		stopCmd(),
		statusCmd(),
		showClientsCmd(),
		blockCmd(),
		unblockCmd(),
		qosCmd(),
		priorityCmd(),
		resetCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func startCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the hotspot",
		Run: func(cmd *cobra.Command, args []string) {
			st, err := hotspotClient.StartHotspot()
			if err != nil {
				log.Fatalf("start error: %v", err)
			}
			fmt.Printf("hotspot up: ssid=%s ap=%s wan=%s firewall=%s\n",
				st.SSID, st.AP, st.WAN, st.Firewall)
		},
	}
}

func stopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the hotspot and undo its system changes",
		Run: func(cmd *cobra.Command, args []string) {
			if err := hotspotClient.StopHotspot(); err != nil {
				log.Fatalf("stop error: %v", err)
			}
			fmt.Println("hotspot stopped")
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show hotspot state",
		Run: func(cmd *cobra.Command, args []string) {
			st, err := hotspotClient.Hotspot()
			if err != nil {
				log.Fatalf("status error: %v", err)
			}
			fmt.Printf("state: %s\n", st.State)
			if st.Running {
				fmt.Printf("ssid: %s\nap: %s\nsta: %s\nwan: %s\n", st.SSID, st.AP, st.STA, st.WAN)
				fmt.Printf("delegate: %v\nshared radio: %v\n", st.Delegate, st.SharedRadio)
				if st.Firewall != "" {
					fmt.Printf("firewall: %s\n", st.Firewall)
				}
			}
		},
	}
}

func showClientsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show-clients",
		Short: "List associated devices with their policy standing",
		Run: func(cmd *cobra.Command, args []string) {
			res, err := hotspotClient.Clients()
			if err != nil {
				log.Fatalf("show-clients error: %v", err)
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "MAC\tSIGNAL\tRX\tTX\tRATE\tFLAGS")
			for _, c := range res.Clients {
				flags := ""
				if c.Blocked {
					flags += "blocked "
				}
				if c.Priority {
					flags += "priority"
				}
				rate := c.Rate
				if rate == "" {
					rate = "-"
				}
				fmt.Fprintf(w, "%s\t%ddBm\t%d\t%d\t%s\t%s\n",
					c.MAC, c.SignalDBM, c.RxBytes, c.TxBytes, rate, flags)
			}
			w.Flush()
		},
	}
}

func blockCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "block <mac>",
		Short: "Deny all forwarding for a device",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if err := hotspotClient.Block(args[0]); err != nil {
				log.Fatalf("block error: %v", err)
			}
		},
	}
}

func unblockCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unblock <mac>",
		Short: "Remove a device from the deny list",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if err := hotspotClient.Unblock(args[0]); err != nil {
				log.Fatalf("unblock error: %v", err)
			}
		},
	}
}

func qosCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "qos <mac> <rate>",
		Short: "Limit a device's bandwidth (e.g. 2mbit, 500kbit)",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			if err := hotspotClient.QoS(args[0], args[1]); err != nil {
				log.Fatalf("qos error: %v", err)
			}
		},
	}
}

func priorityCmd() *cobra.Command {
	var off bool
	cmd := &cobra.Command{
		Use:   "priority <mac>",
		Short: "Give a device's traffic elevated priority",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if err := hotspotClient.Priority(args[0], !off); err != nil {
				log.Fatalf("priority error: %v", err)
			}
		},
	}
	cmd.Flags().BoolVar(&off, "off", false, "remove the priority flag instead")
	return cmd
}

func resetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Clear the whole QoS policy",
		Run: func(cmd *cobra.Command, args []string) {
			if err := hotspotClient.ResetPolicy(); err != nil {
				log.Fatalf("reset error: %v", err)
			}
			fmt.Println("policy cleared")
		},
	}
}
