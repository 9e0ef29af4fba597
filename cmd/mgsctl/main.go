package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/cuemby/mgs/pkg/api"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "mgsctl",
	Short: "mgsctl - manual READ/WRITE/CLEAR against a running mgsd",
}

var (
	serverAddr string
	storage    string
	tenant     string
	timeout    time.Duration
)

func init() {
	rootCmd.PersistentFlags().StringVar(&serverAddr, "server", "localhost:7070", "mgsd gRPC address")
	rootCmd.PersistentFlags().StringVar(&storage, "storage", "", "storage-name (required)")
	rootCmd.PersistentFlags().StringVar(&tenant, "tenant", "", "request-scoped tenant (optional)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Second, "RPC timeout")

	rootCmd.AddCommand(readCmd, writeCmd, clearCmd)
}

func dial() (*api.Client, error) {
	if storage == "" {
		return nil, fmt.Errorf("--storage is required")
	}
	return api.Dial(serverAddr)
}

var readCmd = &cobra.Command{
	Use:   "read <entity-id>",
	Short: "READ one entity's current state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := dial()
		if err != nil {
			return err
		}
		defer client.Close()

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		resp, err := client.Read(ctx, storage, tenant, args[0])
		if err != nil {
			return err
		}
		if !resp.Slot.RecordExists {
			fmt.Println("(absent)")
			return nil
		}
		fmt.Printf("etag: %s\ndata: %s\n", resp.Slot.ETag, resp.Slot.Data)
		return nil
	},
}

var writeFile string

var writeCmd = &cobra.Command{
	Use:   "write <entity-id>",
	Short: "WRITE a JSON payload, read from --file or stdin",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := dial()
		if err != nil {
			return err
		}
		defer client.Close()

		var data []byte
		if writeFile != "" {
			data, err = os.ReadFile(writeFile)
		} else {
			data, err = io.ReadAll(os.Stdin)
		}
		if err != nil {
			return fmt.Errorf("mgsctl: read payload: %w", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		resp, err := client.Write(ctx, storage, tenant, args[0], api.StateSlotMessage{Data: data})
		if err != nil {
			return err
		}
		if resp.ConcurrencyConflict {
			return fmt.Errorf("mgsctl: concurrency conflict")
		}
		fmt.Printf("etag: %s\n", resp.Slot.ETag)
		return nil
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear <entity-id>",
	Short: "CLEAR (delete) one entity's state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := dial()
		if err != nil {
			return err
		}
		defer client.Close()

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := client.Clear(ctx, storage, tenant, args[0]); err != nil {
			return err
		}
		fmt.Println("cleared")
		return nil
	},
}

func init() {
	writeCmd.Flags().StringVarP(&writeFile, "file", "f", "", "path to a JSON payload file (default: read stdin)")
}
