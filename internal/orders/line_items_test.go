package orders

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/vitora-backend/pkg/errors"
)

func TestValidateLineItems(t *testing.T) {
	assert.NoError(t, ValidateLineItems(json.RawMessage(`[]`)))
	assert.NoError(t, ValidateLineItems(json.RawMessage(` {"a":1} `)))

	for _, raw := range []string{``, `null`, `"text"`, `42`, `[1,`} {
		err := ValidateLineItems(json.RawMessage(raw))
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "input %q", raw)
	}
}

func TestParseLineItemsKeyFallbacks(t *testing.T) {
	items := ParseLineItems(json.RawMessage(`[
		{"nombre":"Colágeno","cantidad":2,"precio_unitario":75000},
		{"name":"Vitamin D","units":"3","price":"12000.50"},
		{"sku":"OMEGA-3","qty":1},
		{}
	]`))
	require.Len(t, items, 4)

	assert.Equal(t, "Colágeno", items[0].Name)
	assert.EqualValues(t, 2, items[0].Quantity)
	assert.Equal(t, "150000", items[0].Subtotal().String())

	assert.Equal(t, "Vitamin D", items[1].Name)
	assert.EqualValues(t, 3, items[1].Quantity)
	assert.Equal(t, "12000.5", items[1].UnitPrice.String())

	assert.Equal(t, "OMEGA-3", items[2].Name)
	assert.True(t, items[2].UnitPrice.IsZero())

	assert.Equal(t, "Producto", items[3].Name)
	assert.EqualValues(t, 1, items[3].Quantity)
}

func TestParseLineItemsObjects(t *testing.T) {
	single := ParseLineItems(json.RawMessage(`{"nombre":"Kit","cantidad":1,"precio":99000}`))
	require.Len(t, single, 1)
	assert.Equal(t, "Kit", single[0].Name)

	wrapped := ParseLineItems(json.RawMessage(`{"items":[{"name":"A"},{"name":"B"}]}`))
	require.Len(t, wrapped, 2)

	assert.Nil(t, ParseLineItems(json.RawMessage(`"x"`)))
}
