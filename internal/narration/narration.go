// Package narration speaks game text aloud. Playback is an external
// collaborator: the engine only needs to start an utterance, optionally in
// the background, and later wait for it to finish.
package narration

import (
	"regexp"
	"strings"
	"sync"
)

// Narrator speaks text with a voice. When background is false Speak returns
// after playback has finished; otherwise it returns immediately and the
// caller waits on the Playback.
type Narrator interface {
	Speak(text, voice string, background bool) *Playback
}

// Playback is a handle on one utterance.
type Playback struct {
	done chan struct{}
	once sync.Once
	err  error
}

func newPlayback() *Playback {
	return &Playback{done: make(chan struct{})}
}

// Finished returns a playback that has already completed.
func Finished(err error) *Playback {
	p := newPlayback()
	p.finish(err)
	return p
}

func (p *Playback) finish(err error) {
	p.once.Do(func() {
		p.err = err
		close(p.done)
	})
}

// Go runs play on a new goroutine and returns its handle.
func Go(play func() error) *Playback {
	p := newPlayback()
	go func() { p.finish(play()) }()
	return p
}

// Wait blocks until the utterance is over. A nil Playback is already done.
func (p *Playback) Wait() error {
	if p == nil {
		return nil
	}
	<-p.done
	return p.err
}

// Done is closed when playback ends.
func (p *Playback) Done() <-chan struct{} {
	return p.done
}

// Silent is a Narrator that never makes a sound.
type Silent struct{}

// Speak implements Narrator.
func (Silent) Speak(string, string, bool) *Playback { return Finished(nil) }

var (
	markup     = regexp.MustCompile(`[*_#` + "`" + `]+`)
	whitespace = regexp.MustCompile(`\s+`)
)

// Clean strips markdown emphasis and collapses whitespace so the synthesizer
// reads plain sentences.
func Clean(text string) string {
	text = markup.ReplaceAllString(text, "")
	return strings.TrimSpace(whitespace.ReplaceAllString(text, " "))
}
