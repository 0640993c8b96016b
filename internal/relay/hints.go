package relay

import "strings"

// Canned remediation messages, indexed by hint id.
var hintCatalog = []string{
	"You didn't import Hammer correctly. The correct way to do this is: From Hammer Require Import Hammer.",
}

// translationTable maps a diagnostic substring to the hints it triggers.
var translationTable = map[string][]int{
	"The reference sauto was not found in the current environment":        {0},
	"Cannot find a physical path bound to logical path CoqHammer.Hammer.": {0},
	"Cannot find a physical path bound to logical path Hammer.Hammer":     {0},
}

const (
	repeatMessage = "Stop submitting the same error-filled code. Start the proof from scratch. It's all wrong."

	// appended to a checker diagnostic when the code used sauto
	sautoCaseworkHint = " There is likely a way to fix the code by replacing parts of your casework with sauto, or by replacing casework entirely with hammer."

	// appended to a transport failure when the code used sauto
	sautoFailureHint = " There is likely a way to fix the code by using hammer rather than sauto."
)

// matchHints returns the joined hint text for every table key found in log, and
// whether anything matched. Ids are collected into a set, so several keys pointing
// at the same hint yield it once. The order of distinct hints follows map iteration
// and is not stable.
func matchHints(log string) (string, bool) {
	ids := make(map[int]struct{})
	for substr, hints := range translationTable {
		if !strings.Contains(log, substr) {
			continue
		}
		for _, id := range hints {
			ids[id] = struct{}{}
		}
	}
	if len(ids) == 0 {
		return "", false
	}

	msgs := make([]string, 0, len(ids))
	for id := range ids {
		msgs = append(msgs, hintCatalog[id])
	}
	return strings.Join(msgs, " "), true
}

func usesSauto(code string) bool {
	return strings.Contains(code, "sauto")
}
