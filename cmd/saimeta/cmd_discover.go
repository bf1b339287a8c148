package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/newtron-network/saimeta/pkg/cli"
	"github.com/newtron-network/saimeta/pkg/discovery"
	"github.com/newtron-network/saimeta/pkg/meta"
	"github.com/newtron-network/saimeta/pkg/sai"
)

var (
	dumpFile string
	saveFile string
)

// discoverySummary is what discover reports.
type discoverySummary struct {
	Objects     int            `json:"objects"`
	Switches    []string       `json:"switches"`
	Counts      map[string]int `json:"counts"`
	References  int            `json:"references"`
	PortRelated int            `json:"port_related"`
	Ports       int            `json:"ports_with_related_objects"`
}

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Warm start from a switch or a dump and summarize the object graph",
	Long: `Warm start the metadata layer from the switch's ASIC_DB (or from a JSON
dump with --dump) and summarize what was found.

Examples:
  saimeta discover
  saimeta discover --redis 10.0.0.1:6379 --save asic_db.json
  saimeta discover --dump asic_db.json --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		sess, err := openSession(ctx, dumpFile, nil)
		if err != nil {
			return err
		}
		defer sess.Close()

		var summary discoverySummary
		var records []meta.Record
		sess.client.Inspect(func(m *meta.Meta) error {
			summary.Objects = m.Store().Len()
			for _, sw := range m.Switches() {
				summary.Switches = append(summary.Switches, sw.String())
			}
			summary.Counts = make(map[string]int)
			for ot, n := range m.ObjectCounts() {
				summary.Counts[ot.String()] = n
			}
			summary.References = m.Graph().Len()
			summary.PortRelated = m.Ports().Len()
			summary.Ports = len(m.Ports().AllPorts())
			if saveFile != "" {
				for _, o := range m.Store().Objects() {
					records = append(records, meta.Record{Key: o.Key, Attrs: o.Attrs()})
				}
			}
			return nil
		})

		if saveFile != "" {
			data, err := discovery.MarshalRecords(sess.schema, records)
			if err != nil {
				return fmt.Errorf("encoding dump: %w", err)
			}
			if err := os.WriteFile(saveFile, data, 0644); err != nil {
				return fmt.Errorf("writing dump: %w", err)
			}
		}

		if jsonOutput {
			return json.NewEncoder(os.Stdout).Encode(summary)
		}

		fmt.Printf("%s %d objects on %d switch(es)\n\n", cli.Bold("Discovered"), summary.Objects, len(summary.Switches))
		types := make([]string, 0, len(summary.Counts))
		for ot := range summary.Counts {
			types = append(types, ot)
		}
		sort.Strings(types)
		t := cli.NewTable("OBJECT TYPE", "COUNT")
		for _, ot := range types {
			t.Row(ot, strconv.Itoa(summary.Counts[ot]))
		}
		t.Flush()
		fmt.Printf("\nReferences:          %d\n", summary.References)
		fmt.Printf("Port-related objects: %d on %d ports\n", summary.PortRelated, summary.Ports)
		if saveFile != "" {
			fmt.Printf("Dump written to %s\n", saveFile)
		}
		return nil
	},
}

var refsCmd = &cobra.Command{
	Use:   "refs <oid>",
	Short: "Show what references an object and whether it can be removed",
	Long: `Warm start, then list the objects that reference the given object id.

Examples:
  saimeta refs oid:0x3000000000002
  saimeta refs --dump asic_db.json oid:0x3000000000002`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		oid, err := sai.ParseOID(args[0])
		if err != nil {
			return err
		}
		ctx := context.Background()
		sess, err := openSession(ctx, dumpFile, nil)
		if err != nil {
			return err
		}
		defer sess.Close()

		var (
			known     bool
			referrers []sai.Key
			removable bool
			related   []sai.OID
		)
		sess.client.Inspect(func(m *meta.Meta) error {
			known = m.Store().Exists(oid)
			referrers = m.Graph().Referrers(oid)
			removable = m.Graph().CanRemove(oid)
			related = m.Ports().PortRelatedObjects(oid)
			return nil
		})
		if !known {
			return fmt.Errorf("%s: %w", oid, sai.StatusItemNotFound)
		}

		if jsonOutput {
			out := struct {
				Object    string   `json:"object"`
				Type      string   `json:"type"`
				Referrers []string `json:"referrers"`
				Removable bool     `json:"removable"`
				Related   []string `json:"port_related,omitempty"`
			}{Object: oid.String(), Type: oid.ObjectType().String(), Removable: removable}
			for _, k := range referrers {
				out.Referrers = append(out.Referrers, k.String())
			}
			for _, r := range related {
				out.Related = append(out.Related, r.String())
			}
			return json.NewEncoder(os.Stdout).Encode(out)
		}

		fmt.Printf("%s %s\n", cli.Bold(oid.ObjectType().String()), oid)
		fmt.Printf("Removable: %s (%d references)\n\n", cli.YesNo(removable), len(referrers))
		t := cli.NewTable("REFERRER TYPE", "KEY")
		for _, k := range referrers {
			t.Row(k.ObjectType().String(), k.String())
		}
		t.Flush()
		if len(related) > 0 {
			fmt.Printf("\n%d port-related objects:\n", len(related))
			rt := cli.NewTable("TYPE", "OID").WithPrefix("  ")
			for _, r := range related {
				rt.Row(r.ObjectType().String(), r.String())
			}
			rt.Flush()
		}
		return nil
	},
}

func init() {
	for _, cmd := range []*cobra.Command{discoverCmd, refsCmd, watchCmd} {
		cmd.Flags().StringVar(&dumpFile, "dump", "", "Read a JSON dump instead of the switch's ASIC_DB")
	}
	discoverCmd.Flags().StringVar(&saveFile, "save", "", "Write the discovered objects as a JSON dump")
}
