package command

import "testing"

func TestParseDestinationChange(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    string
		wantHit bool
	}{
		{
			name:    "okay variant",
			text:    "Okay, changing destination to Connaught Place",
			want:    "Connaught Place",
			wantHit: true,
		},
		{
			name:    "bare changing trigger",
			text:    "Changing destination to India Gate.",
			want:    "India Gate",
			wantHit: true,
		},
		{
			name:    "setting trigger",
			text:    "Setting destination to Lotus Temple!",
			want:    "Lotus Temple",
			wantHit: true,
		},
		{
			name:    "navigating trigger",
			text:    "Sure, navigating to Indira Gandhi International Airport now arriving shortly",
			want:    "Indira Gandhi International Airport now arriving shortly",
			wantHit: true,
		},
		{
			name:    "mixed case",
			text:    "OKAY, CHANGING DESTINATION TO Red Fort",
			want:    "Red Fort",
			wantHit: true,
		},
		{
			name:    "embedded mid sentence",
			text:    "Of course. Okay, changing destination to Qutub Minar.",
			want:    "Qutub Minar",
			wantHit: true,
		},
		{
			name: "no trigger",
			text: "The weather in Delhi is pleasant today.",
		},
		{
			name: "trigger with nothing after",
			text: "changing destination to",
		},
		{
			name: "trigger followed only by punctuation",
			text: "navigating to ...",
		},
		{
			name: "empty text",
			text: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseDestinationChange(tt.text)
			if ok != tt.wantHit {
				t.Fatalf("hit = %v, want %v", ok, tt.wantHit)
			}
			if got != tt.want {
				t.Errorf("destination = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseDestinationChangePrefersSpecificTrigger(t *testing.T) {
	// The okay-variant contains the bare trigger as a suffix; the
	// destination must not swallow the leading words.
	got, ok := ParseDestinationChange("okay, changing destination to Hauz Khas Village")
	if !ok || got != "Hauz Khas Village" {
		t.Errorf("got %q (%v)", got, ok)
	}
}
