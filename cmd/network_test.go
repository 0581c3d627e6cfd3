package main

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanctuari/rfq-cli/internal/model"
)

func table(t *testing.T, csv string) *networkTable {
	t.Helper()
	tbl, err := readNetworkCSV(context.Background(), strings.NewReader(csv))
	require.NoError(t, err)
	return tbl
}

func TestNetworkCSV_Insurers(t *testing.T) {
	t.Parallel()

	tbl := table(t, "Name,Contact_Email,Type,Is_Active\n"+
		"Acme General, Quotes@Acme.example ,general,\n"+
		"Lifeline,life@lifeline.example,LIFE,no\n")

	got, err := tbl.insurers()
	require.NoError(t, err)
	assert.Equal(t, []model.Insurer{
		{Name: "Acme General", Type: model.InsurerGeneral, ContactEmail: "quotes@acme.example", IsActive: true},
		{Name: "Lifeline", Type: model.InsurerLife, ContactEmail: "life@lifeline.example", IsActive: false},
	}, got)
}

func TestNetworkCSV_Brokers(t *testing.T) {
	t.Parallel()

	tbl := table(t, "name,contact_email,license_number,contact_phone,is_partner\n"+
		"Shield Brokers,desk@shield.example,IRDA-42,+91 98000 00000,true\n")

	got, err := tbl.brokers()
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, model.Broker{
		Name:          "Shield Brokers",
		LicenseNumber: "IRDA-42",
		ContactEmail:  "desk@shield.example",
		ContactPhone:  "+91 98000 00000",
		IsPartner:     true,
		IsActive:      true,
	}, got[0])
}

func TestNetworkCSV_Rejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		csv     string
		brokers bool
		want    string
	}{
		{name: "missing email column", csv: "name,phone\nA,1\n", want: `missing column "contact_email"`},
		{name: "blank name", csv: "name,contact_email\n,a@b.example\n", want: "line 2: name and contact_email are required"},
		{name: "bad type", csv: "name,contact_email,type\nA,a@b.example,marine\n", want: `line 2: unknown insurer type "marine"`},
		{name: "bad flag", csv: "name,contact_email,is_partner\nA,a@b.example,maybe\n", brokers: true, want: `line 2: is_partner "maybe" is not a boolean`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tbl, err := readNetworkCSV(context.Background(), strings.NewReader(tt.csv))
			if err == nil {
				if tt.brokers {
					_, err = tbl.brokers()
				} else {
					_, err = tbl.insurers()
				}
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestNetworkCSV_Empty(t *testing.T) {
	t.Parallel()

	_, err := readNetworkCSV(context.Background(), strings.NewReader(""))
	assert.Error(t, err)
}
