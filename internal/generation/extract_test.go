package generation

import (
	"reflect"
	"testing"
)

func TestExtractFieldsMultiPlatform(t *testing.T) {
	raw := "youtube: Watch our new video now\nfacebook: Like and share this post\nmastodon: not a thing here"
	requested := []Platform{PlatformYouTube, PlatformFacebook, PlatformTikTok}

	got := ExtractFields(raw, requested)
	want := map[Platform]string{
		PlatformYouTube:  "Watch our new video now",
		PlatformFacebook: "Like and share this post",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("extract = %v, want %v", got, want)
	}
	if _, ok := got[PlatformTikTok]; ok {
		t.Fatal("platform absent from the reply must be absent from the result")
	}
}

func TestExtractFieldsLaterOccurrenceWins(t *testing.T) {
	raw := "instagram: first draft\ninstagram: final copy"
	got := ExtractFields(raw, []Platform{PlatformInstagram, PlatformYouTube})
	if got[PlatformInstagram] != "final copy" {
		t.Fatalf("got %q, want the later occurrence", got[PlatformInstagram])
	}
}

func TestExtractFieldsCaseInsensitiveLabels(t *testing.T) {
	raw := "YouTube: Big announcement\nTIKTOK: Short and punchy"
	got := ExtractFields(raw, []Platform{PlatformYouTube, PlatformTikTok})
	if got[PlatformYouTube] != "Big announcement" {
		t.Fatalf("youtube = %q", got[PlatformYouTube])
	}
	if got[PlatformTikTok] != "Short and punchy" {
		t.Fatalf("tiktok = %q", got[PlatformTikTok])
	}
}

func TestExtractFieldsSinglePlatformPassthrough(t *testing.T) {
	raw := "Top 10 tips: how to grow\nnote: colons everywhere: still one text"
	got := ExtractFields(raw, []Platform{PlatformInstagram})
	if got[PlatformInstagram] != raw {
		t.Fatalf("single-platform request must receive the raw text, got %q", got[PlatformInstagram])
	}
	if len(got) != 1 {
		t.Fatalf("got %d entries, want 1", len(got))
	}
}

func TestExtractFieldsDropsUnrequestedPlatforms(t *testing.T) {
	raw := "youtube: video copy\nfacebook: post copy"
	got := ExtractFields(raw, []Platform{PlatformYouTube, PlatformInstagram})
	if _, ok := got[PlatformFacebook]; ok {
		t.Fatal("platforms the caller did not request must be dropped")
	}
}

func TestExtractFieldsTextStopsAtColon(t *testing.T) {
	raw := "youtube: part one: part two\nfacebook: plain"
	got := ExtractFields(raw, []Platform{PlatformYouTube, PlatformFacebook})
	if got[PlatformYouTube] != "part one" {
		t.Fatalf("youtube = %q, scan must stop at the next colon", got[PlatformYouTube])
	}
}

func TestParsePlatform(t *testing.T) {
	if _, ok := ParsePlatform("  YouTube "); !ok {
		t.Fatal("trimmed case-insensitive name must parse")
	}
	if _, ok := ParsePlatform("myspace"); ok {
		t.Fatal("unknown platform must not parse")
	}
}
