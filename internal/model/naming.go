package model

import (
	"fmt"
	"strconv"
	"strings"
)

// natoAlphabet is the 26 standard NATO phonetic names, in order. GenerateName
// assigns them in this order and falls back to "agent-N" once exhausted.
var natoAlphabet = []string{
	"alpha", "bravo", "charlie", "delta", "echo", "foxtrot", "golf", "hotel",
	"india", "juliett", "kilo", "lima", "mike", "november", "oscar", "papa",
	"quebec", "romeo", "sierra", "tango", "uniform", "victor", "whiskey",
	"xray", "yankee", "zulu",
}

// GenerateName returns a name not present in existing, preferring the NATO
// alphabet in order (so gaps left by deleted sessions are filled before
// moving further down the alphabet) and falling back to "agent-N" once all
// 26 phonetic names are taken.
func GenerateName(existing map[string]struct{}) string {
	for _, name := range natoAlphabet {
		if _, taken := existing[name]; !taken {
			return name
		}
	}
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("agent-%d", n)
		if _, taken := existing[candidate]; !taken {
			return candidate
		}
	}
}

// ExistingNameSet builds the set GenerateName expects from a session list.
func ExistingNameSet(names []string) map[string]struct{} {
	out := make(map[string]struct{}, len(names))
	for _, n := range names {
		out[n] = struct{}{}
	}
	return out
}

// IsAgentNFallback reports whether name matches the "agent-N" fallback
// pattern (used by callers that need to keep a monotonic counter in sync
// after the NATO alphabet is exhausted).
func IsAgentNFallback(name string) (n int, ok bool) {
	if !strings.HasPrefix(name, "agent-") {
		return 0, false
	}
	v, err := strconv.Atoi(strings.TrimPrefix(name, "agent-"))
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}
