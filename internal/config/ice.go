package config

import (
	"fmt"

	"github.com/pion/stun/v3"
	"github.com/pion/webrtc/v4"
)

// ICEServers turns stun_urls into the list handed to browsers. Only STUN
// URLs are accepted; the server never relays media so TURN has no place here.
func (c *Config) ICEServers() ([]webrtc.ICEServer, error) {
	out := make([]webrtc.ICEServer, 0, len(c.StunURLs))
	for _, raw := range c.StunURLs {
		uri, err := stun.ParseURI(raw)
		if err != nil {
			return nil, fmt.Errorf("stun url %q: %w", raw, err)
		}
		if uri.Scheme != stun.SchemeTypeSTUN && uri.Scheme != stun.SchemeTypeSTUNS {
			return nil, fmt.Errorf("stun url %q: scheme %s not allowed", raw, uri.Scheme)
		}
		out = append(out, webrtc.ICEServer{URLs: []string{raw}})
	}
	return out, nil
}
