package command

import "testing"

func TestDetect(t *testing.T) {
	tests := []struct {
		message string
		matched bool
		persona string
	}{
		{"Comando di sistema ora sarai sherlock", true, "sherlock"},
		{"comando di sistema ora sarai pirata", true, "pirata"},
		{"COMANDO DI SISTEMA DIVENTA nonna", true, "nonna"},
		{"comando di sistema comportati come sherlock", true, "sherlock"},
		{"comando di sistema comportati da pirata", true, "pirata"},
		{"comando di sistema cambia personalità in sherlock", true, "sherlock"},
		{"comando di sistema cambia personalita a pirata", true, "pirata"},
		{"comando di sistema ora sei sherlock", true, "sherlock"},
		{"comando di sistema attiva la personalità sherlock", true, "sherlock"},
		{"comando di sistema attiva personalita pirata", true, "pirata"},
		{"comando di sistema passa alla modalità sherlock", true, "sherlock"},
		{"switch to sherlock", true, "sherlock"},
		{"switch tu sherlock", true, "sherlock"},
		{"abracadabra diventa pirata", true, "pirata"},
		{"magia magia diventa sherlock", true, "sherlock"},

		// Casing of the persona name itself must not matter: the whole
		// message is lowercased before matching, so "Pirata" binds the
		// same persona file as "pirata".
		{"comando di sistema ora sarai Pirata", true, "pirata"},
		{"Comando di Sistema Ora Sarai SHERLOCK", true, "sherlock"},
		{"Switch To Nonna", true, "nonna"},

		{"ciao come stai", false, ""},
		{"ora sarai sherlock", false, ""},
		{"diventa sherlock", false, ""},
		{"comando di sistema", false, ""},
		{"parliamo del comando di sistema operativo", false, ""},
		{"", false, ""},
	}

	for _, tt := range tests {
		matched, persona := Detect(tt.message)
		if matched != tt.matched || persona != tt.persona {
			t.Errorf("Detect(%q) = (%v, %q), want (%v, %q)",
				tt.message, matched, persona, tt.matched, tt.persona)
		}
	}
}

func TestDetectEmbeddedInSentence(t *testing.T) {
	// The pattern may appear anywhere in the message, as with the original
	// voice pipeline where filler words surround the command.
	matched, persona := Detect("ehm comando di sistema ora sarai sherlock grazie")
	if !matched || persona != "sherlock" {
		t.Errorf("Detect = (%v, %q), want (true, sherlock)", matched, persona)
	}
}
