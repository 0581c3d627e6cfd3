package main

import (
	"context"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sanctuari/rfq-cli/internal/fetcher"
	"github.com/sanctuari/rfq-cli/internal/model"
)

var networkCmd = &cobra.Command{
	Use:   "network",
	Short: "Manage the insurer and broker network",
}

var networkImportCmd = &cobra.Command{
	Use:   "import <insurers|brokers> <csv>",
	Short: "Upsert insurers or brokers from a CSV file",
	Long: `Upsert network entries from a CSV file with a header row. Rows are matched
on contact_email.

insurers: name, contact_email, type, contact_phone, is_active
brokers:  name, contact_email, license_number, contact_phone, is_partner, is_active`,
	Args:      cobra.ExactArgs(2),
	ValidArgs: []string{"insurers", "brokers"},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("import"); err != nil {
			return err
		}

		kind, path := args[0], args[1]
		if kind != "insurers" && kind != "brokers" {
			return eris.Errorf("network import: unknown kind %q (want insurers or brokers)", kind)
		}

		f, err := os.Open(path)
		if err != nil {
			return eris.Wrapf(err, "open %s", path)
		}
		defer f.Close() //nolint:errcheck

		table, err := readNetworkCSV(ctx, f)
		if err != nil {
			return eris.Wrapf(err, "read %s", path)
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		var n int64
		switch kind {
		case "insurers":
			insurers, perr := table.insurers()
			if perr != nil {
				return perr
			}
			n, err = st.ImportInsurers(ctx, insurers)
		case "brokers":
			brokers, perr := table.brokers()
			if perr != nil {
				return perr
			}
			n, err = st.ImportBrokers(ctx, brokers)
		}
		if err != nil {
			return eris.Wrapf(err, "import %s", kind)
		}

		zap.L().Info("network import complete",
			zap.String("kind", kind),
			zap.Int64("rows", n),
			zap.String("csv", path),
		)
		return nil
	},
}

func init() {
	networkCmd.AddCommand(networkImportCmd)
	rootCmd.AddCommand(networkCmd)
}

// networkTable is a CSV body addressed by lower-cased header name.
type networkTable struct {
	cols map[string]int
	rows [][]string
}

func readNetworkCSV(ctx context.Context, r io.Reader) (*networkTable, error) {
	records, err := fetcher.ReadCSV(ctx, r, fetcher.CSVOptions{TrimSpace: true})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, eris.New("csv is empty")
	}

	t := &networkTable{cols: make(map[string]int), rows: records[1:]}
	for i, h := range records[0] {
		t.cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, req := range []string{"name", "contact_email"} {
		if _, ok := t.cols[req]; !ok {
			return nil, eris.Errorf("csv is missing column %q", req)
		}
	}
	return t, nil
}

func (t *networkTable) get(row []string, col string) string {
	i, ok := t.cols[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// flag parses a boolean column. Missing or blank cells take def.
func (t *networkTable) flag(row []string, col string, def bool, line int) (bool, error) {
	v := t.get(row, col)
	if v == "" {
		return def, nil
	}
	switch strings.ToLower(v) {
	case "y", "yes":
		return true, nil
	case "n", "no":
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, eris.Errorf("line %d: %s %q is not a boolean", line, col, v)
	}
	return b, nil
}

func (t *networkTable) identity(row []string, line int) (string, string, error) {
	name, email := t.get(row, "name"), strings.ToLower(t.get(row, "contact_email"))
	if name == "" || email == "" {
		return "", "", eris.Errorf("line %d: name and contact_email are required", line)
	}
	return name, email, nil
}

func (t *networkTable) insurers() ([]model.Insurer, error) {
	out := make([]model.Insurer, 0, len(t.rows))
	for i, row := range t.rows {
		line := i + 2
		name, email, err := t.identity(row, line)
		if err != nil {
			return nil, err
		}
		active, err := t.flag(row, "is_active", true, line)
		if err != nil {
			return nil, err
		}

		typ := model.InsurerType(strings.ToLower(t.get(row, "type")))
		switch typ {
		case "", model.InsurerGeneral, model.InsurerHealth, model.InsurerLife:
		default:
			return nil, eris.Errorf("line %d: unknown insurer type %q", line, typ)
		}

		out = append(out, model.Insurer{
			Name:         name,
			Type:         typ,
			ContactEmail: email,
			ContactPhone: t.get(row, "contact_phone"),
			IsActive:     active,
		})
	}
	return out, nil
}

func (t *networkTable) brokers() ([]model.Broker, error) {
	out := make([]model.Broker, 0, len(t.rows))
	for i, row := range t.rows {
		line := i + 2
		name, email, err := t.identity(row, line)
		if err != nil {
			return nil, err
		}
		active, err := t.flag(row, "is_active", true, line)
		if err != nil {
			return nil, err
		}
		partner, err := t.flag(row, "is_partner", false, line)
		if err != nil {
			return nil, err
		}

		out = append(out, model.Broker{
			Name:          name,
			LicenseNumber: t.get(row, "license_number"),
			ContactEmail:  email,
			ContactPhone:  t.get(row, "contact_phone"),
			IsPartner:     partner,
			IsActive:      active,
		})
	}
	return out, nil
}
