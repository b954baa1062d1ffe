package rpc

import (
	"strings"

	"github.com/txsociety/nano-harvester/pkg/core"
)

// retryableMessages are node rejections that mean the submitted block's
// previous field no longer matches the frontier. Matching is
// case-insensitive substring, because node versions vary the casing.
var retryableMessages = []string{
	"fork",
	"gap previous",
	"old block",
}

// classify maps a node error string into the closed error taxonomy.
// Anything unmapped becomes UNEXPECTED_ERROR with code RPC_ERROR so the
// original node text is preserved.
func classify(nodeError string) *core.Error {
	lowered := strings.ToLower(nodeError)
	for _, m := range retryableMessages {
		if strings.Contains(lowered, m) {
			return core.NewError(core.KindFork, "node rejected block: %s", nodeError)
		}
	}
	switch {
	case strings.Contains(lowered, "account not found"):
		return core.NewError(core.KindAccountNotFound, "%s", nodeError)
	case strings.Contains(lowered, "block not found"):
		return core.NewError(core.KindBlockNotFound, "%s", nodeError)
	case strings.Contains(lowered, "bad account number"):
		return core.NewError(core.KindInvalidAccount, "%s", nodeError)
	}
	return core.NewErrorWithCode(core.KindUnexpected, "RPC_ERROR", "node error: %s", nodeError)
}
