package formula

import (
	"fmt"
	"regexp"

	"github.com/davidleathers/change-risk-gate/internal/domain/values"
)

// entry describes why a catalogued name is risky
type entry struct {
	severity    values.Severity
	description string
}

// genericEntry applies to catalogued names without a dedicated description
var genericEntry = entry{
	severity:    values.SeverityMedium,
	description: "Potentially unsafe operation",
}

// catalog holds the lookup tables of one analyzer. It is built once and only
// read afterwards, so a single catalog is shared by concurrent analyses.
type catalog struct {
	unsafeFunctions []string
	functionCalls   map[string]*regexp.Regexp
	functionInfo    map[string]entry

	connectors    []string
	connectorRefs map[string]*regexp.Regexp

	unsafeActions []string
	actionInfo    map[string]entry

	restActions        []string
	internalURLMarkers []string
}

// Expression-language functions that mutate data, leave the app or reach the network
var defaultUnsafeFunctions = []string{
	"HTTP", "Patch", "Remove", "RemoveIf", "Clear", "Collect", "ClearCollect",
	"UpdateContext", "Navigate", "Back", "Exit", "Launch", "Param",
	"SaveData", "LoadData",
}

var defaultFunctionInfo = map[string]entry{
	"HTTP":          {values.SeverityHigh, "Direct HTTP request to an external endpoint"},
	"Patch":         {values.SeverityMedium, "Modifies records in a data source"},
	"Remove":        {values.SeverityHigh, "Deletes records from a data source"},
	"RemoveIf":      {values.SeverityHigh, "Conditionally deletes records from a data source"},
	"Clear":         {values.SeverityMedium, "Clears all records from a collection"},
	"Collect":       {values.SeverityLow, "Writes records to a local collection"},
	"ClearCollect":  {values.SeverityMedium, "Replaces the contents of a collection"},
	"UpdateContext": {values.SeverityLow, "Mutates screen context variables"},
	"Navigate":      {values.SeverityLow, "Changes the navigation flow of the app"},
	"Back":          {values.SeverityLow, "Changes the navigation flow of the app"},
	"Exit":          {values.SeverityMedium, "Terminates the running app"},
	"Launch":        {values.SeverityHigh, "Opens an external URL or application"},
	"Param":         {values.SeverityMedium, "Reads caller supplied launch parameters"},
}

// Connector namespaces referenced as Name.Operation(...)
var defaultConnectors = []string{
	"Office365", "SharePoint", "SQL", "Dynamics", "PowerBI", "Teams", "OneDrive", "AzureBlobStorage",
}

// Workflow actions that mutate persisted state or call out of the platform
var defaultUnsafeActions = []string{
	"CallREST", "CallWebService", "Delete", "Create", "Change", "Commit", "Rollback",
	"DeleteObject", "ChangeObject",
}

var defaultActionInfo = map[string]entry{
	"CallREST":       {values.SeverityHigh, "Calls a REST service"},
	"CallWebService": {values.SeverityHigh, "Calls a SOAP web service"},
	"Delete":         {values.SeverityHigh, "Deletes objects"},
	"Create":         {values.SeverityLow, "Creates objects"},
	"Change":         {values.SeverityMedium, "Changes object attributes"},
	"Commit":         {values.SeverityMedium, "Commits objects to the database"},
	"Rollback":       {values.SeverityMedium, "Rolls back uncommitted changes"},
	"DeleteObject":   {values.SeverityHigh, "Deletes an object"},
	"ChangeObject":   {values.SeverityMedium, "Changes an object"},
}

var defaultRESTActions = []string{"CallREST", "CallWebService"}

// URLs containing any of these markers are considered internal
var defaultInternalURLMarkers = []string{"localhost", "127.0.0.1", "internal", ".local"}

func newCatalog() *catalog {
	c := &catalog{
		unsafeFunctions:    defaultUnsafeFunctions,
		functionCalls:      make(map[string]*regexp.Regexp, len(defaultUnsafeFunctions)),
		functionInfo:       defaultFunctionInfo,
		connectors:         defaultConnectors,
		connectorRefs:      make(map[string]*regexp.Regexp, len(defaultConnectors)),
		unsafeActions:      defaultUnsafeActions,
		actionInfo:         defaultActionInfo,
		restActions:        defaultRESTActions,
		internalURLMarkers: defaultInternalURLMarkers,
	}

	for _, name := range c.unsafeFunctions {
		c.functionCalls[name] = regexp.MustCompile(fmt.Sprintf(`\b%s\s*\(`, regexp.QuoteMeta(name)))
	}
	for _, name := range c.connectors {
		c.connectorRefs[name] = regexp.MustCompile(fmt.Sprintf(`\b%s\w*\.`, regexp.QuoteMeta(name)))
	}

	return c
}

func (c *catalog) function(name string) entry {
	if e, ok := c.functionInfo[name]; ok {
		return e
	}
	return genericEntry
}

func (c *catalog) action(name string) entry {
	if e, ok := c.actionInfo[name]; ok {
		return e
	}
	return genericEntry
}
