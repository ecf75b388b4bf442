// Package notice turns pipeline errors into short localized messages for
// people, keeping provider outages apart from network trouble and bad input.
package notice

import (
	"context"
	"errors"
	"net"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"

	"github.com/sydlexius/trackyear/internal/analyzer"
	"github.com/sydlexius/trackyear/internal/export"
	"github.com/sydlexius/trackyear/internal/provider"
	"github.com/sydlexius/trackyear/internal/provider/spotify"
	"github.com/sydlexius/trackyear/internal/review"
)

// Kind is the user-facing category of an error.
type Kind string

// Error categories.
const (
	KindNone         Kind = ""
	KindAborted      Kind = "aborted"
	KindAuth         Kind = "auth"
	KindRateLimited  Kind = "rate_limited"
	KindNetwork      Kind = "network"
	KindProviderDown Kind = "provider_down"
	KindBadInput     Kind = "bad_input"
	KindNotFound     Kind = "not_found"
	KindCanceled     Kind = "canceled"
	KindInternal     Kind = "internal"
)

// ErrInvalidRequest marks malformed input from a client.
var ErrInvalidRequest = errors.New("invalid request")

// Message keys. English text doubles as the key.
const (
	msgAborted      = "Validation stopped after %d tracks in a row failed. %s seems to be unreachable, please try again later."
	msgAuth         = "Could not sign in to %s. Please check the configured credentials."
	msgRateLimited  = "%s is receiving too many requests. Please wait a moment and try again."
	msgNetwork      = "The network is unreachable. Please check your internet connection."
	msgProviderDown = "%s is currently unavailable. Please try again later."
	msgBadInput     = "The input was not understood. Please check it and try again."
	msgBadPlaylist  = "That is not a valid Spotify playlist link."
	msgNotFound     = "Nothing was found for this request."
	msgCanceled     = "The request was cancelled."
	msgInternal     = "Something went wrong. Please try again."
	msgSomeService  = "A music service"
)

var (
	supported = []language.Tag{language.English, language.German}
	matcher   = language.NewMatcher(supported)
	messages  = newCatalog()
)

func newCatalog() catalog.Catalog {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	de := map[string]string{
		msgAborted:      "Die Prüfung wurde nach %d fehlgeschlagenen Titeln in Folge abgebrochen. %s scheint nicht erreichbar zu sein, bitte später erneut versuchen.",
		msgAuth:         "Anmeldung bei %s fehlgeschlagen. Bitte die hinterlegten Zugangsdaten prüfen.",
		msgRateLimited:  "%s erhält zu viele Anfragen. Bitte einen Moment warten und erneut versuchen.",
		msgNetwork:      "Das Netzwerk ist nicht erreichbar. Bitte die Internetverbindung prüfen.",
		msgProviderDown: "%s ist derzeit nicht verfügbar. Bitte später erneut versuchen.",
		msgBadInput:     "Die Eingabe wurde nicht verstanden. Bitte prüfen und erneut versuchen.",
		msgBadPlaylist:  "Das ist kein gültiger Spotify-Playlist-Link.",
		msgNotFound:     "Für diese Anfrage wurde nichts gefunden.",
		msgCanceled:     "Die Anfrage wurde abgebrochen.",
		msgInternal:     "Etwas ist schiefgelaufen. Bitte erneut versuchen.",
		msgSomeService:  "Ein Musikdienst",
	}
	for key, text := range de {
		_ = b.SetString(language.German, key, text)
		_ = b.SetString(language.English, key, key)
	}
	return b
}

// Classify returns the category of err.
func Classify(err error) Kind {
	if err == nil {
		return KindNone
	}

	var (
		auth *provider.ErrAuthFailed
		rl   *provider.ErrRateLimited
		pu   *provider.ErrProviderUnavailable
		nf   *provider.ErrNotFound
		ne   net.Error
	)
	switch {
	case errors.Is(err, analyzer.ErrValidationAborted):
		return KindAborted
	case errors.As(err, &auth):
		return KindAuth
	case errors.As(err, &rl):
		return KindRateLimited
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	case errors.As(err, &ne):
		return KindNetwork
	case errors.As(err, &pu):
		return KindProviderDown
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, spotify.ErrInvalidPlaylistRef),
		errors.Is(err, analyzer.ErrInvalidYear),
		errors.Is(err, export.ErrUnknownFormat):
		return KindBadInput
	case errors.As(err, &nf),
		errors.Is(err, review.ErrRunNotFound),
		errors.Is(err, review.ErrTrackNotFound):
		return KindNotFound
	default:
		return KindInternal
	}
}

// Printer returns a message printer for the best supported match of lang,
// which may be a tag or an Accept-Language value.
func Printer(lang string) *message.Printer {
	_, i := language.MatchStrings(matcher, lang)
	return message.NewPrinter(supported[i], message.Catalog(messages))
}

// Message renders err for a person reading lang. It returns "" for nil.
func Message(err error, lang string) string {
	p := Printer(lang)

	switch Classify(err) {
	case KindNone:
		return ""
	case KindAborted:
		return p.Sprintf(msgAborted, consecutiveFailures(err), providerOf(p, err))
	case KindAuth:
		return p.Sprintf(msgAuth, providerOf(p, err))
	case KindRateLimited:
		return p.Sprintf(msgRateLimited, providerOf(p, err))
	case KindNetwork:
		return p.Sprintf(msgNetwork)
	case KindProviderDown:
		return p.Sprintf(msgProviderDown, providerOf(p, err))
	case KindBadInput:
		if errors.Is(err, spotify.ErrInvalidPlaylistRef) {
			return p.Sprintf(msgBadPlaylist)
		}
		return p.Sprintf(msgBadInput)
	case KindNotFound:
		return p.Sprintf(msgNotFound)
	case KindCanceled:
		return p.Sprintf(msgCanceled)
	default:
		return p.Sprintf(msgInternal)
	}
}

// providerOf names the provider behind err, or a generic service name.
func providerOf(p *message.Printer, err error) string {
	var (
		auth *provider.ErrAuthFailed
		rl   *provider.ErrRateLimited
		pu   *provider.ErrProviderUnavailable
	)
	switch {
	case errors.As(err, &auth):
		return auth.Provider.DisplayName()
	case errors.As(err, &rl):
		return rl.Provider.DisplayName()
	case errors.As(err, &pu):
		return pu.Provider.DisplayName()
	}
	return p.Sprintf(msgSomeService)
}

func consecutiveFailures(err error) int {
	var ae *analyzer.AbortError
	if errors.As(err, &ae) {
		return ae.Consecutive
	}
	return analyzer.DefaultAbortThreshold
}
