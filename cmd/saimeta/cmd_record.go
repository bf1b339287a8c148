package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/newtron-network/saimeta/pkg/audit"
	"github.com/newtron-network/saimeta/pkg/cli"
	"github.com/newtron-network/saimeta/pkg/sai"
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "View recorded operations",
	Long: `View operations recorded with --record (or the record_file setting).

Every create, remove, set, get, bulk call, stats call, warm start and
processed notification is recorded with its object, attributes, final
status and duration.

Examples:
  saimeta record list --last 1h
  saimeta record list --operation bulk_create --failures
  saimeta record list --type SAI_OBJECT_TYPE_ROUTE_ENTRY
  saimeta record list --status SAI_STATUS_OBJECT_IN_USE`,
}

var (
	recordSwitch    string
	recordOperation string
	recordType      string
	recordKey       string
	recordStatus    string
	recordLast      string
	recordLimit     int
	recordFailures  bool
)

var recordListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded operations",
	RunE: func(cmd *cobra.Command, args []string) error {
		if recordFile == "" {
			return errors.New("no record file: pass --record or set record_file")
		}
		recorder, err := audit.NewFileRecorder(recordFile, audit.RotationConfig{})
		if err != nil {
			return err
		}
		defer recorder.Close()

		filter := audit.Filter{
			Switch:      recordSwitch,
			Operation:   recordOperation,
			ObjectType:  recordType,
			Key:         recordKey,
			Limit:       recordLimit,
			FailureOnly: recordFailures,
			Newest:      true,
		}
		if recordStatus != "" {
			st, err := sai.ParseStatus(recordStatus)
			if err != nil {
				return err
			}
			filter.Status = st.String()
		}
		if recordLast != "" {
			duration, err := time.ParseDuration(recordLast)
			if err != nil {
				return fmt.Errorf("invalid duration: %s", recordLast)
			}
			filter.StartTime = time.Now().Add(-duration)
		}

		events, err := recorder.Query(filter)
		if err != nil {
			return fmt.Errorf("querying record file: %w", err)
		}

		if jsonOutput {
			return json.NewEncoder(os.Stdout).Encode(events)
		}
		if len(events) == 0 {
			fmt.Println("No recorded operations found")
			return nil
		}

		t := cli.NewTable("TIMESTAMP", "OPERATION", "OBJECT TYPE", "KEY", "ITEMS", "STATUS", "DURATION")
		for _, ev := range events {
			status, err := sai.ParseStatus(ev.Status)
			if err != nil {
				status = sai.StatusFailure
			}
			items := "-"
			if ev.Items > 0 {
				items = strconv.Itoa(ev.Items)
			}
			t.Row(
				ev.Timestamp.Format("2006-01-02 15:04:05"),
				ev.Operation,
				strings.TrimPrefix(ev.ObjectType, "SAI_OBJECT_TYPE_"),
				ev.Key,
				items,
				cli.Status(status),
				ev.Duration.Round(time.Microsecond).String(),
			)
		}
		t.Flush()
		return nil
	},
}

func init() {
	recordListCmd.Flags().StringVar(&recordSwitch, "switch", "", "Filter by switch object id")
	recordListCmd.Flags().StringVar(&recordOperation, "operation", "", "Filter by operation (create, bulk_set, notification, ...)")
	recordListCmd.Flags().StringVar(&recordType, "type", "", "Filter by object type")
	recordListCmd.Flags().StringVar(&recordKey, "key", "", "Filter by object key (oid:0x... or entry JSON)")
	recordListCmd.Flags().StringVar(&recordStatus, "status", "", "Filter by final status (e.g., SAI_STATUS_OBJECT_IN_USE)")
	recordListCmd.Flags().StringVar(&recordLast, "last", "", "Show operations from last duration (e.g., 1h, 30m)")
	recordListCmd.Flags().IntVar(&recordLimit, "limit", 100, "Maximum operations to show, most recent last")
	recordListCmd.Flags().BoolVar(&recordFailures, "failures", false, "Show only failed operations")

	recordCmd.AddCommand(recordListCmd)
}
