package locale

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/language"

	"github.com/nerrad567/nuki-control/internal/bridges/nuki"
)

// Table holds the user-facing strings for one language.
type Table struct {
	// Code is the short language code ("en", "it").
	Code string

	Summary nuki.SummaryLabels

	// ErrorPrefix precedes every localised error message.
	ErrorPrefix string

	// Errors maps each failure kind to its message. The upstream HTTP
	// message takes the status code as its only verb.
	Errors map[nuki.ErrorKind]string

	// BridgeResponse precedes the raw body of an action the bridge refused.
	BridgeResponse string

	CriticalLabel string
	OKLabel       string

	// Commands holds button labels per command name.
	Commands map[string]string
}

var english = &Table{
	Code: "en",
	Summary: nuki.SummaryLabels{
		Lock:            "Lock: ",
		LockState:       "Lock: state=",
		Door:            "Door: ",
		DoorState:       "Door: doorState=",
		Battery:         "Battery: ",
		BatteryCritical: "Battery critical: ",
		LastUpdate:      "Last update: ",
		NoData:          "No state data available",
		DateLayout:      "02/01/2006, 15:04:05",
	},
	ErrorPrefix: "Error: ",
	Errors: map[nuki.ErrorKind]string{
		nuki.KindUnreachable:    "bridge unreachable.",
		nuki.KindTimeout:        "bridge timeout.",
		nuki.KindUpstreamHTTP:   "bridge returned HTTP %d.",
		nuki.KindUnexpected:     "unexpected bridge error.",
		nuki.KindUnknownCommand: "unknown command.",
	},
	BridgeResponse: "Bridge response: ",
	CriticalLabel:  "Critical",
	OKLabel:        "OK",
	Commands: map[string]string{
		nuki.CommandLock:      "Lock",
		nuki.CommandUnlock:    "Unlock",
		nuki.CommandUnlatch:   "Open door",
		nuki.CommandLockAndGo: "Lock'n'Go",
	},
}

var italian = &Table{
	Code: "it",
	Summary: nuki.SummaryLabels{
		Lock:            "Serratura: ",
		LockState:       "Serratura: state=",
		Door:            "Porta: ",
		DoorState:       "Porta: doorState=",
		Battery:         "Batteria: ",
		BatteryCritical: "Batteria critica: ",
		LastUpdate:      "Ultimo aggiornamento: ",
		NoData:          "Nessun dato di stato disponibile",
		DateLayout:      "02/01/2006, 15:04:05",
	},
	ErrorPrefix: "Errore: ",
	Errors: map[nuki.ErrorKind]string{
		nuki.KindUnreachable:    "bridge non raggiungibile.",
		nuki.KindTimeout:        "timeout del bridge.",
		nuki.KindUpstreamHTTP:   "il bridge ha risposto HTTP %d.",
		nuki.KindUnexpected:     "errore imprevisto del bridge.",
		nuki.KindUnknownCommand: "comando sconosciuto.",
	},
	BridgeResponse: "Risposta bridge: ",
	CriticalLabel:  "Critica",
	OKLabel:        "OK",
	Commands: map[string]string{
		nuki.CommandLock:      "Chiudi",
		nuki.CommandUnlock:    "Sblocca",
		nuki.CommandUnlatch:   "Apri porta",
		nuki.CommandLockAndGo: "Lock'n'Go",
	},
}

// tables lists supported languages. The first entry is the last-resort
// fallback.
var tables = []*Table{english, italian}

// English returns the English table.
func English() *Table { return english }

// Lookup returns the table for an exact short code.
func Lookup(code string) (*Table, bool) {
	code = strings.ToLower(strings.TrimSpace(code))
	for _, t := range tables {
		if t.Code == code {
			return t, true
		}
	}
	return nil, false
}

// Supported returns the short codes of all tables.
func Supported() []string {
	codes := make([]string, len(tables))
	for i, t := range tables {
		codes[i] = t.Code
	}
	return codes
}

// Negotiator picks a table from request hints.
type Negotiator struct {
	matcher  language.Matcher
	fallback *Table
}

// NewNegotiator creates a negotiator that falls back to defaultCode, or
// English when defaultCode is not supported.
func NewNegotiator(defaultCode string) *Negotiator {
	fallback, ok := Lookup(defaultCode)
	if !ok {
		fallback = english
	}

	tags := make([]language.Tag, len(tables))
	for i, t := range tables {
		tags[i] = language.Make(t.Code)
	}

	return &Negotiator{
		matcher:  language.NewMatcher(tags),
		fallback: fallback,
	}
}

// Default returns the fallback table.
func (n *Negotiator) Default() *Table {
	return n.fallback
}

// Negotiate chooses a table. An explicit code (from ?lang=) wins, then the
// Accept-Language header, then the configured default.
func (n *Negotiator) Negotiate(explicit, acceptLanguage string) *Table {
	if t, ok := Lookup(explicit); ok {
		return t
	}
	if acceptLanguage == "" {
		return n.fallback
	}

	prefs, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(prefs) == 0 {
		return n.fallback
	}
	_, idx, conf := n.matcher.Match(prefs...)
	if conf == language.No {
		return n.fallback
	}
	return tables[idx]
}

// ErrorMessage localises err. Failures that are not bridge errors read as
// unexpected.
func (t *Table) ErrorMessage(err error) string {
	kind := nuki.KindOf(err)
	msg := t.Errors[kind]
	if kind == nuki.KindUpstreamHTTP {
		status := 0
		var be *nuki.BridgeError
		if errors.As(err, &be) {
			status = be.Status
		}
		msg = fmt.Sprintf(msg, status)
	}
	return t.ErrorPrefix + msg
}

// OutcomeMessage renders the result of a dispatched command.
func (t *Table) OutcomeMessage(o *nuki.ActionOutcome) string {
	if o.Success {
		return fmt.Sprintf("OK (batteryCritical=%t)", o.BatteryCritical)
	}
	return t.BridgeResponse + string(o.Raw)
}

// BatteryFlagLabel renders a bare critical flag.
func (t *Table) BatteryFlagLabel(critical bool) string {
	if critical {
		return t.CriticalLabel
	}
	return t.OKLabel
}

// CommandLabel returns the button label for a command name.
func (t *Table) CommandLabel(name string) string {
	if l, ok := t.Commands[name]; ok {
		return l
	}
	return name
}
