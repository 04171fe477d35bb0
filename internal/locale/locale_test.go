package locale

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nerrad567/nuki-control/internal/bridges/nuki"
)

func TestLookup(t *testing.T) {
	tbl, ok := Lookup("IT ")
	assert.True(t, ok)
	assert.Equal(t, "it", tbl.Code)

	_, ok = Lookup("fr")
	assert.False(t, ok)

	assert.Equal(t, []string{"en", "it"}, Supported())
}

func TestNegotiator(t *testing.T) {
	n := NewNegotiator("it")
	assert.Equal(t, "it", n.Default().Code)

	tests := []struct {
		name     string
		explicit string
		accept   string
		want     string
	}{
		{"explicit wins", "en", "it-IT,it;q=0.9", "en"},
		{"header used without explicit", "", "it-IT,it;q=0.9,en;q=0.5", "it"},
		{"header regional english", "", "en-US,en;q=0.8", "en"},
		{"unsupported header falls back", "", "ja-JP", "it"},
		{"unsupported explicit uses header", "de", "en-GB", "en"},
		{"nothing given", "", "", "it"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, n.Negotiate(tt.explicit, tt.accept).Code)
		})
	}
}

func TestNewNegotiator_UnknownDefault(t *testing.T) {
	assert.Equal(t, "en", NewNegotiator("xx").Default().Code)
}

func TestTable_ErrorMessage(t *testing.T) {
	en := English()
	it, _ := Lookup("it")

	upstream := &nuki.BridgeError{Kind: nuki.KindUpstreamHTTP, Status: 500, Endpoint: nuki.EndpointLockAction}
	assert.Equal(t, "Error: bridge returned HTTP 500.", en.ErrorMessage(upstream))
	assert.Equal(t, "Errore: il bridge ha risposto HTTP 500.", it.ErrorMessage(upstream))

	assert.Equal(t, "Error: unknown command.", en.ErrorMessage(&nuki.BridgeError{Kind: nuki.KindUnknownCommand}))
	assert.Equal(t, "Errore: bridge non raggiungibile.", it.ErrorMessage(&nuki.BridgeError{Kind: nuki.KindUnreachable}))
	assert.Equal(t, "Error: unexpected bridge error.", en.ErrorMessage(errors.New("boom")))
}

func TestTables_Complete(t *testing.T) {
	kinds := []nuki.ErrorKind{nuki.KindUnreachable, nuki.KindTimeout, nuki.KindUpstreamHTTP, nuki.KindUnexpected, nuki.KindUnknownCommand}
	for _, tbl := range tables {
		for _, k := range kinds {
			assert.NotEmpty(t, tbl.Errors[k], "%s missing %s", tbl.Code, k)
		}
		for _, cmd := range nuki.Commands {
			assert.NotEmpty(t, tbl.Commands[cmd.Name], "%s missing label for %s", tbl.Code, cmd.Name)
		}
		assert.NotEmpty(t, tbl.Summary.NoData)
	}
}

func TestTable_OutcomeMessage(t *testing.T) {
	en := English()
	it, _ := Lookup("it")

	assert.Equal(t, "OK (batteryCritical=true)", en.OutcomeMessage(&nuki.ActionOutcome{Success: true, BatteryCritical: true}))
	assert.Equal(t, `Bridge response: {"success":false}`, en.OutcomeMessage(&nuki.ActionOutcome{Raw: []byte(`{"success":false}`)}))
	assert.Equal(t, `Risposta bridge: {"success":false}`, it.OutcomeMessage(&nuki.ActionOutcome{Raw: []byte(`{"success":false}`)}))
}

func TestTable_Labels(t *testing.T) {
	it, _ := Lookup("it")
	assert.Equal(t, "Critica", it.BatteryFlagLabel(true))
	assert.Equal(t, "OK", it.BatteryFlagLabel(false))
	assert.Equal(t, "Apri porta", it.CommandLabel("unlatch"))
	assert.Equal(t, "other", it.CommandLabel("other"))
}
