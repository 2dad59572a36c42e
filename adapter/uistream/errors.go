package uistream

import (
	"fmt"
	"strings"
)

// ProtocolTranslationError reports an update that cannot be expressed as wire events
type ProtocolTranslationError struct {
	Namespace []string
	Node      string
	Reason    string
	Err       error
}

func (e *ProtocolTranslationError) Error() string {
	where := e.Node
	if len(e.Namespace) > 0 {
		where = strings.Join(e.Namespace, "/") + "/" + e.Node
	}
	if e.Err != nil {
		return fmt.Sprintf("cannot translate update from %s: %s: %v", where, e.Reason, e.Err)
	}
	return fmt.Sprintf("cannot translate update from %s: %s", where, e.Reason)
}

func (e *ProtocolTranslationError) Unwrap() error {
	return e.Err
}
