package reconcile

import (
	"reflect"
	"testing"

	"github.com/sydlexius/trackyear/internal/provider"
	"github.com/sydlexius/trackyear/internal/track"
)

func sig(name provider.ProviderName, year int) provider.YearSignal {
	return *provider.NewSignal(name, year, "")
}

func TestReconcileUnanimous(t *testing.T) {
	tr := track.Track{Year: 1971}
	rec := Reconcile(tr, []provider.YearSignal{
		sig(provider.NameSpotify, 1971),
		sig(provider.NameSpotifyOriginal, 1971),
		sig(provider.NameMusicBrainz, 1971),
	})

	if rec.BestYear != 1971 {
		t.Errorf("BestYear = %d, want 1971", rec.BestYear)
	}
	if !rec.SourcesAgree {
		t.Error("expected sources to agree")
	}
	if rec.Confidence != track.ConfidenceVeryHigh {
		t.Errorf("Confidence = %s, want very_high", rec.Confidence)
	}
	v := rec.Votes[1971]
	if v.Count != 3 || v.Weight != 6 {
		t.Errorf("unexpected vote tally %+v", v)
	}
	wantProviders := []provider.ProviderName{provider.NameSpotify, provider.NameSpotifyOriginal, provider.NameMusicBrainz}
	if !reflect.DeepEqual(v.Providers, wantProviders) {
		t.Errorf("providers = %v, want %v", v.Providers, wantProviders)
	}
}

func TestReconcileSecondaryOverride(t *testing.T) {
	tr := track.Track{Year: 2001}
	rec := Reconcile(tr, []provider.YearSignal{
		sig(provider.NameSpotify, 2001),
		sig(provider.NameMusicBrainz, 1975),
		sig(provider.NameLastFM, 1975),
	})

	if rec.BestYear != 1975 {
		t.Errorf("BestYear = %d, want 1975", rec.BestYear)
	}
	if rec.Confidence != track.ConfidenceVeryHigh {
		t.Errorf("Confidence = %s, want very_high", rec.Confidence)
	}
	if !rec.Overridden {
		t.Error("expected override to fire")
	}
	if rec.SourcesAgree {
		t.Error("sources do not all agree")
	}
	if !rec.MajorityAgree {
		t.Error("two of three signals is a majority")
	}
}

func TestReconcileNoOverrideWhenSecondariesMatchCatalog(t *testing.T) {
	rec := Reconcile(track.Track{Year: 1975}, []provider.YearSignal{
		sig(provider.NameSpotify, 1975),
		sig(provider.NameMusicBrainz, 1975),
		sig(provider.NameLastFM, 1975),
	})
	if rec.Overridden {
		t.Error("override must not fire when secondaries agree with the catalog")
	}
	if rec.Confidence != track.ConfidenceVeryHigh {
		t.Errorf("Confidence = %s, want very_high", rec.Confidence)
	}
}

func TestReconcileNoOverrideWhenSecondariesDisagree(t *testing.T) {
	rec := Reconcile(track.Track{Year: 2001}, []provider.YearSignal{
		sig(provider.NameSpotify, 2001),
		sig(provider.NameMusicBrainz, 1975),
		sig(provider.NameLastFM, 1976),
	})
	if rec.Overridden {
		t.Error("override requires both secondaries to agree")
	}
}

func TestReconcileEmpty(t *testing.T) {
	rec := Reconcile(track.Track{Year: 1999}, nil)
	if rec.BestYear != 1999 {
		t.Errorf("BestYear = %d, want catalog year 1999", rec.BestYear)
	}
	if rec.Confidence != track.ConfidenceLow {
		t.Errorf("Confidence = %s, want low", rec.Confidence)
	}
	if rec.SourcesAgree {
		t.Error("no signals cannot agree")
	}
}

func TestReconcileIgnoresYearlessSignals(t *testing.T) {
	rec := Reconcile(track.Track{Year: 1999}, []provider.YearSignal{sig(provider.NameMusicBrainz, 0)})
	if len(rec.Sources) != 0 || rec.BestYear != 1999 || rec.Confidence != track.ConfidenceLow {
		t.Errorf("yearless signal should be treated as absent, got %+v", rec)
	}
}

func TestReconcileSingleSignal(t *testing.T) {
	rec := Reconcile(track.Track{Year: 1999}, []provider.YearSignal{sig(provider.NameSpotify, 1999)})
	if !rec.SourcesAgree {
		t.Error("a single signal agrees with itself")
	}
	if rec.Confidence != track.ConfidenceLow {
		t.Errorf("Confidence = %s, want low", rec.Confidence)
	}
}

func TestReconcileMajorityHigh(t *testing.T) {
	rec := Reconcile(track.Track{Year: 2001}, []provider.YearSignal{
		sig(provider.NameSpotify, 2001),
		sig(provider.NameSpotifyOriginal, 1975),
		sig(provider.NameMusicBrainz, 1975),
	})
	if rec.BestYear != 1975 {
		t.Errorf("BestYear = %d, want 1975", rec.BestYear)
	}
	if rec.Confidence != track.ConfidenceHigh {
		t.Errorf("Confidence = %s, want high", rec.Confidence)
	}
	if rec.Overridden {
		t.Error("one secondary cannot trigger the override")
	}
}

func TestReconcileWeightTieBrokenByCount(t *testing.T) {
	// 1975 weight 3 from one signal, 1980 weight 3 from two signals.
	rec := Reconcile(track.Track{Year: 1980}, []provider.YearSignal{
		sig(provider.NameSpotify, 1980),
		sig(provider.NameSpotifyOriginal, 1975),
		sig(provider.NameMusicBrainz, 1980),
	})
	if rec.BestYear != 1980 {
		t.Errorf("BestYear = %d, want 1980", rec.BestYear)
	}
}

func TestReconcileFullTieIsStable(t *testing.T) {
	signals := []provider.YearSignal{
		sig(provider.NameLastFM, 1980),
		sig(provider.NameMusicBrainz, 1975),
	}
	first := Reconcile(track.Track{}, signals)
	if first.Confidence != track.ConfidenceMedium {
		t.Errorf("Confidence = %s, want medium", first.Confidence)
	}
	for i := 0; i < 20; i++ {
		if got := Reconcile(track.Track{}, signals); got.BestYear != first.BestYear {
			t.Fatalf("tie-break not stable: %d vs %d", got.BestYear, first.BestYear)
		}
	}
}

func TestReconcileBestYearMembership(t *testing.T) {
	years := []int{0, 1970, 1975, 2001}
	names := []provider.ProviderName{
		provider.NameSpotify, provider.NameSpotifyOriginal, provider.NameMusicBrainz, provider.NameLastFM,
	}
	for _, a := range years {
		for _, b := range years {
			for _, c := range years {
				for _, d := range years {
					picked := []int{a, b, c, d}
					var signals []provider.YearSignal
					present := map[int]bool{}
					for i, y := range picked {
						signals = append(signals, sig(names[i], y))
						if y > 0 {
							present[y] = true
						}
					}
					tr := track.Track{Year: a}
					rec := Reconcile(tr, signals)
					if len(present) == 0 {
						if rec.BestYear != tr.Year {
							t.Fatalf("%v: fallback BestYear = %d, want %d", picked, rec.BestYear, tr.Year)
						}
						continue
					}
					if !present[rec.BestYear] {
						t.Fatalf("%v: BestYear %d not among signal years", picked, rec.BestYear)
					}
					if again := Reconcile(tr, signals); !reflect.DeepEqual(again, rec) {
						t.Fatalf("%v: result not deterministic", picked)
					}
				}
			}
		}
	}
}
