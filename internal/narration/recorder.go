package narration

import (
	"sync"
	"time"
)

// Utterance is one recorded Speak call.
type Utterance struct {
	Text       string
	Voice      string
	Background bool
}

// Recorder is a Narrator that remembers what it was asked to say. Each
// utterance takes Delay to "play", which lets tests observe overlap.
type Recorder struct {
	Delay time.Duration

	mu  sync.Mutex
	log []Utterance
}

// Speak implements Narrator.
func (r *Recorder) Speak(text, voice string, background bool) *Playback {
	r.mu.Lock()
	r.log = append(r.log, Utterance{Text: text, Voice: voice, Background: background})
	r.mu.Unlock()

	if r.Delay <= 0 {
		return Finished(nil)
	}
	if !background {
		time.Sleep(r.Delay)
		return Finished(nil)
	}
	return Go(func() error {
		time.Sleep(r.Delay)
		return nil
	})
}

// Utterances returns a copy of everything spoken so far.
func (r *Recorder) Utterances() []Utterance {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Utterance(nil), r.log...)
}

// Texts returns just the spoken text.
func (r *Recorder) Texts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.log))
	for i, u := range r.log {
		out[i] = u.Text
	}
	return out
}
