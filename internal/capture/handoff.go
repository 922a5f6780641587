package capture

import "sync"

// Handoff holds the single in-flight capture image in the privileged
// context until the popup signals readiness. A new capture replaces any
// undelivered image (last write wins); delivery happens once and clears
// the slot.
type Handoff struct {
	mu      sync.Mutex
	image   string
	present bool
}

// Set stores a pending image, replacing any previous one.
func (h *Handoff) Set(imageBase64 string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.image = imageBase64
	h.present = true
}

// Take removes and returns the pending image. The second result is false
// when nothing is pending or the image was already delivered.
func (h *Handoff) Take() (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.present {
		return "", false
	}
	img := h.image
	h.image = ""
	h.present = false
	return img, true
}

// Clear drops any pending image, for popup teardown.
func (h *Handoff) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.image = ""
	h.present = false
}
