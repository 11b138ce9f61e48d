package parser_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0x6d61/strikeforge/internal/parser"
)

func TestRegistry_DispatchByID(t *testing.T) {
	r := parser.DefaultRegistry()

	for _, id := range []string{"hydra", "medusa", "gobuster", "dirb", "ffuf", "dirsearch", "sqlmap", "nikto", "nuclei", "nmap", parser.GenericID} {
		assert.True(t, r.Has(id), id)
	}

	p := r.For("sqlmap", parser.Context{Tool: "sqlmap"})
	assert.Len(t, p.Consume("Parameter: id is vulnerable"), 1)
}

func TestRegistry_UnknownFallsBackToGeneric(t *testing.T) {
	r := parser.DefaultRegistry()
	assert.False(t, r.Has("wpscan"))

	p := r.For("wpscan", parser.Context{Tool: "wpscan"})
	got := p.Consume("[+] XML-RPC seems to be enabled: http://10.0.0.5/xmlrpc.php")

	require.Len(t, got, 1)
	assert.Equal(t, parser.KindNote, got[0].Kind)
	assert.Equal(t, parser.SeverityLow, p.Finalize())
}

func TestRegistry_RegisterOverrides(t *testing.T) {
	r := parser.NewRegistry()
	r.Register("gobuster", parser.NewDirScan)

	assert.Equal(t, []string{parser.GenericID, "gobuster"}, r.IDs())
	assert.NotNil(t, r.For("gobuster", parser.Context{}))
}

func TestGeneric_Exclusions(t *testing.T) {
	p := parser.NewGeneric(parser.Context{Tool: "custom"})

	for _, line := range []string{"", "   ", "Starting scan...", "Progress: 10%", "=====", "# comment", "[*] loading modules"} {
		assert.Empty(t, p.Consume(line), line)
	}
	assert.Len(t, p.Consume("found something odd"), 1)
}

func TestFinding_Summary(t *testing.T) {
	f := parser.Finding{Kind: parser.KindCredential, Credential: &parser.Credential{Username: "root", Password: "toor", Service: "SSH", Port: 22}}
	assert.Equal(t, "credential root:toor (SSH/22)", f.Summary())

	v := parser.Finding{Kind: parser.KindVulnerability, Vulnerability: &parser.VulnerabilityFinding{Type: "sql-injection", Severity: parser.SeverityCritical, Description: "SQL injection"}}
	assert.Equal(t, "[CRITICAL] sql-injection: SQL injection", v.Summary())
}

func TestParseSeverity(t *testing.T) {
	s, err := parser.ParseSeverity(" HIGH ")
	require.NoError(t, err)
	assert.Equal(t, parser.SeverityHigh, s)

	_, err = parser.ParseSeverity("severe")
	assert.Error(t, err)

	assert.Equal(t, parser.SeverityHigh, parser.Worst(parser.SeverityLow, parser.SeverityHigh))
	assert.True(t, parser.SeverityCritical.AtLeast(parser.SeverityHigh))
}
