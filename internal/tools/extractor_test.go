package tools_test

import (
	"testing"

	"github.com/0x6d61/strikeforge/internal/tools"
)

func TestExtractEntities_NmapServiceLines(t *testing.T) {
	lines := []string{
		"22/tcp   open  ssh     OpenSSH 8.0",
		"80/tcp   open  http    Apache httpd 2.4.49",
		"161/udp  open  snmp",
		"443/tcp  closed https",
	}

	ports := filterType(tools.ExtractEntities(lines), tools.EntityPort)
	if len(ports) != 3 {
		t.Errorf("ports: got %d, want 3", len(ports))
	}
	assertContainsValue(t, ports, "22/tcp")
	assertContainsValue(t, ports, "161/udp")
}

func TestExtractEntities_NiktoOutput(t *testing.T) {
	lines := []string{
		"+ Target IP:          10.0.0.5",
		"+ /cgi-bin/test.cgi: CVE-2014-6271 Shellshock http://10.0.0.5/cgi-bin/test.cgi",
		"+ OSVDB-3092: /admin/: This might be interesting...",
		"+ loopback 127.0.0.1 ignored",
	}

	entities := tools.ExtractEntities(lines)
	assertContainsValue(t, filterType(entities, tools.EntityCVE), "CVE-2014-6271")
	assertContainsValue(t, filterType(entities, tools.EntityURL), "http://10.0.0.5/cgi-bin/test.cgi")

	ips := filterType(entities, tools.EntityIP)
	assertContainsValue(t, ips, "10.0.0.5")
	for _, e := range ips {
		if e.Value == "127.0.0.1" {
			t.Error("loopback address should be excluded")
		}
	}
}

func TestEntityCollector_IncrementalDedup(t *testing.T) {
	c := tools.NewEntityCollector()

	first := c.Add("[!] CVE-2021-41773 detected")
	if len(first) != 1 {
		t.Fatalf("first Add: got %d new entities, want 1", len(first))
	}
	if again := c.Add("CVE-2021-41773 again"); len(again) != 0 {
		t.Errorf("duplicate CVE should not be reported twice, got %v", again)
	}
	c.Add("CVE-2021-42013")

	all := c.Entities()
	if len(all) != 2 {
		t.Errorf("Entities: got %d, want 2", len(all))
	}
	if all[0].Context != "[!] CVE-2021-41773 detected" {
		t.Errorf("Context should keep the source line, got %q", all[0].Context)
	}
}

func filterType(entities []tools.Entity, et tools.EntityType) []tools.Entity {
	var result []tools.Entity
	for _, e := range entities {
		if e.Type == et {
			result = append(result, e)
		}
	}
	return result
}

func assertContainsValue(t *testing.T, entities []tools.Entity, value string) {
	t.Helper()
	for _, e := range entities {
		if e.Value == value {
			return
		}
	}
	t.Errorf("entity value %q not found", value)
}
