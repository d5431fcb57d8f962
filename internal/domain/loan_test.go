package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoanStatusCanTransition(t *testing.T) {
	cases := []struct {
		from LoanStatus
		to   LoanStatus
		want bool
	}{
		{LoanActive, LoanPaid, true},
		{LoanActive, LoanDefaulted, false},
		{LoanActive, LoanActive, false},
		{LoanPaid, LoanActive, false},
		{LoanPaid, LoanPaid, false},
		{LoanDefaulted, LoanActive, false},
		{LoanDefaulted, LoanPaid, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.from.CanTransition(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestParseLoanStatus(t *testing.T) {
	for _, valid := range []string{"active", "paid", "defaulted"} {
		got, err := ParseLoanStatus(valid)
		require.NoError(t, err)
		assert.Equal(t, LoanStatus(valid), got)
	}
	for _, invalid := range []string{"", "ACTIVE", "closed"} {
		_, err := ParseLoanStatus(invalid)
		assert.Error(t, err, "input %q", invalid)
	}
}

func TestParseInstallmentStatus(t *testing.T) {
	for _, valid := range []string{"pending", "overdue", "paid"} {
		got, err := ParseInstallmentStatus(valid)
		require.NoError(t, err)
		assert.Equal(t, InstallmentStatus(valid), got)
	}
	for _, invalid := range []string{"", "PAID", "late"} {
		_, err := ParseInstallmentStatus(invalid)
		assert.Error(t, err, "input %q", invalid)
	}
}
