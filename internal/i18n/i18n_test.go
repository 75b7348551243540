// Copyright (c) 2026 ToeiRei
// Waymaster - VANET routing coordinator
// This source code is licensed under the MIT license found in the LICENSE file.

package i18n

import (
	"bufio"
	"bytes"
	"regexp"
	"strings"
	"testing"
)

var keyLine = regexp.MustCompile(`^"([^"]+)":\s"(.*)"\s*$`)
var fmtVerb = regexp.MustCompile(`%[a-zA-Z]`)

// localeMessages parses an embedded locale file into id -> format string.
func localeMessages(t *testing.T, name string) map[string]string {
	t.Helper()
	data, err := localeFS.ReadFile("locales/" + name)
	if err != nil {
		t.Fatalf("read %s: %v", name, err)
	}
	msgs := map[string]string{}
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		if m := keyLine.FindStringSubmatch(sc.Text()); m != nil {
			msgs[m[1]] = m[2]
		}
	}
	return msgs
}

func TestLocalesHaveIdenticalKeySets(t *testing.T) {
	en := localeMessages(t, "en.yaml")
	de := localeMessages(t, "de.yaml")

	for id := range en {
		if _, ok := de[id]; !ok {
			t.Errorf("key %q present in en.yaml but missing from de.yaml", id)
		}
	}
	for id := range de {
		if _, ok := en[id]; !ok {
			t.Errorf("key %q present in de.yaml but missing from en.yaml", id)
		}
	}
}

func TestLocaleFormatVerbsMatch(t *testing.T) {
	en := localeMessages(t, "en.yaml")
	de := localeMessages(t, "de.yaml")

	for id, enMsg := range en {
		deMsg, ok := de[id]
		if !ok {
			continue
		}
		enVerbs := fmtVerb.FindAllString(enMsg, -1)
		deVerbs := fmtVerb.FindAllString(deMsg, -1)
		if strings.Join(enVerbs, ",") != strings.Join(deVerbs, ",") {
			t.Errorf("key %q: format verbs differ (en %v, de %v)", id, enVerbs, deVerbs)
		}
	}
}

func TestNodeAndEdgeMessagesResolve(t *testing.T) {
	// T falls back to returning the message ID when a key is missing, so a
	// resolved message must differ from its ID in every supported language.
	ids := []string{
		"node.list_empty", "node.list_header", "node.added",
		"node.error_not_found", "node.status_changed",
		"edge.list_empty", "edge.list_header", "edge.set", "edge.removed",
		"audit.empty", "audit.list_header",
		"deploy.chmod_success_message", "deploy.error_bad_mode",
	}
	for _, lang := range []string{"en", "de"} {
		SetLang(lang)
		for _, id := range ids {
			if got := T(id); got == id {
				t.Errorf("lang %s: message %q did not resolve", lang, id)
			}
		}
	}
	SetLang("en")
}
