package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/newtron-network/saimeta/pkg/cli"
	"github.com/newtron-network/saimeta/pkg/sai"
	"github.com/newtron-network/saimeta/pkg/schema"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Inspect attribute schemas",
	Long: `Inspect attribute schemas.

Examples:
  saimeta schema check ./schema.yaml
  saimeta schema show SAI_OBJECT_TYPE_ROUTE_ENTRY`,
}

var schemaCheckCmd = &cobra.Command{
	Use:   "check [file]",
	Short: "Load and validate a schema file (the configured schema when omitted)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			schemaPath = args[0]
		}
		s, err := loadSchema()
		if err != nil {
			return err
		}

		type row struct {
			Type      string `json:"type"`
			Attrs     int    `json:"attributes"`
			Mandatory int    `json:"mandatory"`
			Refs      int    `json:"object_id_attributes"`
			Stats     int    `json:"stats"`
		}
		var rows []row
		for _, ot := range s.ObjectTypes() {
			oi, _ := s.Object(ot)
			r := row{Type: ot.String(), Attrs: len(oi.Attrs()), Stats: len(oi.Stats())}
			for _, md := range oi.Attrs() {
				if md.IsMandatoryOnCreate() {
					r.Mandatory++
				}
				if md.CarriesObjects() {
					r.Refs++
				}
			}
			rows = append(rows, r)
		}

		if jsonOutput {
			return json.NewEncoder(os.Stdout).Encode(rows)
		}
		for _, r := range rows {
			fmt.Printf("%s %3d attributes, %2d mandatory, %2d references, %2d stats\n",
				cli.DotPad(r.Type, 44), r.Attrs, r.Mandatory, r.Refs, r.Stats)
		}
		fmt.Printf("\n%s %d object types\n", cli.Green("ok"), len(rows))
		return nil
	},
}

var schemaShowCmd = &cobra.Command{
	Use:   "show <object-type>",
	Short: "List the attributes of an object type",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSchema()
		if err != nil {
			return err
		}
		ot, err := sai.ParseObjectType(args[0])
		if err != nil {
			return err
		}
		oi, ok := s.Object(ot)
		if !ok {
			return fmt.Errorf("%s is not described by the schema", ot)
		}

		t := cli.NewTable("ID", "NAME", "KIND", "FLAGS", "OBJECTS", "DEFAULT")
		for _, md := range oi.Attrs() {
			var objects []string
			for _, a := range md.AllowedObjectTypes {
				objects = append(objects, strings.TrimPrefix(a.String(), "SAI_OBJECT_TYPE_"))
			}
			def := "-"
			if md.Default != nil {
				def = md.Format(md.Default)
			}
			t.Row(strconv.Itoa(int(md.ID)), md.Name, md.Kind.String(), flagString(md), strings.Join(objects, ","), def)
		}
		t.Flush()

		if stats := oi.Stats(); len(stats) > 0 {
			fmt.Println()
			st := cli.NewTable("STAT", "NAME")
			for i, name := range stats {
				st.Row(strconv.Itoa(i), name)
			}
			st.Flush()
		}
		return nil
	},
}

func flagString(md *schema.AttrMetadata) string {
	var flags []string
	if md.IsMandatoryOnCreate() {
		flags = append(flags, "mandatory")
	}
	switch {
	case md.IsCreateOnly():
		flags = append(flags, "create_only")
	case md.IsCreateAndSet():
		flags = append(flags, "create_and_set")
	case md.IsReadOnly():
		flags = append(flags, "read_only")
	}
	if md.IsKey() {
		flags = append(flags, "key")
	}
	if md.IsConditional() {
		flags = append(flags, "conditional")
	}
	if md.AllowNull {
		flags = append(flags, "allow_null")
	}
	return strings.Join(flags, ",")
}

func init() {
	schemaCmd.AddCommand(schemaCheckCmd)
	schemaCmd.AddCommand(schemaShowCmd)
}
