package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"dataprep/pkg/records"
)

func TestInferType(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   any
		want ColumnType
	}{
		{nil, TypeVarchar},
		{true, TypeBoolean},
		{1.0, TypeInteger},
		{int64(7), TypeInteger},
		{1.5, TypeDecimal},
		{"2024-03-01", TypeTimestamp},
		{"2024-03-01T10:20:30Z", TypeTimestamp},
		{"2024-03-01 10:20", TypeVarchar},
		{"550e8400-e29b-41d4-a716-446655440000", TypeUUID},
		{"550E8400-E29B-41D4-A716-446655440000", TypeUUID},
		{"{550e8400-e29b-41d4-a716-446655440000}", TypeVarchar},
		{"urn:uuid:550e8400-e29b-41d4-a716-446655440000", TypeVarchar},
		{"ann@example.com", TypeVarchar},
		{"42", TypeVarchar},
		{[]any{1.0}, TypeJSON},
		{records.NewRow("a", 1.0), TypeJSON},
		{map[string]any{"a": 1}, TypeJSON},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, InferType(tc.in), "InferType(%#v)", tc.in)
	}
}

func TestInferTableName(t *testing.T) {
	t.Parallel()

	cases := []struct {
		keys []string
		want string
	}{
		{[]string{"name", "user_id"}, "Users"},
		{[]string{"id", "customerId"}, "Customers"},
		{[]string{"orders_id"}, "Orders"},
		{[]string{"order_item_id"}, "OrderItems"},
		{[]string{"id", "name"}, "Fallback"},
		{nil, "Fallback"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, InferTableName(tc.keys, "Fallback"), "keys=%v", tc.keys)
	}
}

func TestPascalCase(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "OrderItem", PascalCase("order_item"))
	assert.Equal(t, "OrderItem", PascalCase("order-item"))
	assert.Equal(t, "OrderItem", PascalCase("orderItem"))
	assert.Equal(t, "Catalog", PascalCase("catalog"))
	assert.Equal(t, "", PascalCase("__"))
}

func TestNormalizeIdentifier(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "prijmeni_a_jmeno", NormalizeIdentifier("  Příjmení a Jméno "))
	assert.Equal(t, "order_id", NormalizeIdentifier("Order-ID"))
	assert.Equal(t, "a_b", NormalizeIdentifier("a / b"))
	assert.Equal(t, "", NormalizeIdentifier("   "))

	long := NormalizeIdentifier("x" + repeat("ab", 50))
	assert.Len(t, long, MaxIdentifierLen)
}

func TestTruncateIdentifierKeepsUTF8(t *testing.T) {
	t.Parallel()

	s := repeat("a", 62) + "é"
	got := TruncateIdentifier(s)
	assert.Equal(t, repeat("a", 62), got)
}

func repeat(s string, n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += s
	}
	return out
}
