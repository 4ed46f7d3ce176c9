package synth

import (
	"context"
	"time"

	"github.com/dgnsrekt/lukija/internal/speech"
	"golang.org/x/time/rate"
)

// Limited wraps a Synthesizer with a request rate limit.
type Limited struct {
	next    speech.Synthesizer
	limiter *rate.Limiter
}

var _ speech.Synthesizer = (*Limited)(nil)

// Limit allows at most perMinute requests per minute through s. A
// non-positive limit returns s unchanged.
func Limit(s speech.Synthesizer, perMinute int) speech.Synthesizer {
	if perMinute <= 0 {
		return s
	}
	return &Limited{
		next:    s,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1),
	}
}

// Synthesize waits for the limiter, then delegates.
func (l *Limited) Synthesize(ctx context.Context, text string, params speech.VoiceParams) (speech.Audio, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		serr := speech.NewSynthesisError("rate limit wait cancelled", err)
		serr.Code = speech.ErrorCodeRateLimited
		return speech.Audio{}, serr
	}
	return l.next.Synthesize(ctx, text, params)
}
