package transport

// stagedContent holds the partial content accumulated for one action before
// it is committed. An action may carry text, an image, or both; staging the
// same kind twice overwrites the earlier value.
type stagedContent struct {
	text     []byte
	image    []byte
	hasText  bool
	hasImage bool
}

// stagingTable maps in-flight action ids to their staged content. Each link
// owns one table exclusively; the scheduler contract guarantees no concurrent
// stage/post/unstage calls for the same action id, so no locking is needed.
type stagingTable map[uint64]*stagedContent

// stage records data under contentType for actionID, overwriting any prior
// value of that kind. An unrecognized content type is a contract violation
// and leaves the table unchanged.
func (t stagingTable) stage(actionID uint64, data []byte, contentType string) error {
	switch contentType {
	case MimeText, MimeImage:
	default:
		return ErrUnknownContentKind
	}

	entry := t[actionID]
	if entry == nil {
		entry = &stagedContent{}
		t[actionID] = entry
	}
	if contentType == MimeText {
		entry.text = data
		entry.hasText = true
	} else {
		entry.image = data
		entry.hasImage = true
	}
	return nil
}

// unstage discards any staged entry for actionID. Absent entries are not an
// error.
func (t stagingTable) unstage(actionID uint64) {
	delete(t, actionID)
}

// takeAndClear removes and returns the staged entry for actionID. ok is
// false when nothing was ever staged, which callers must treat as a failed
// commit rather than a silent no-op.
func (t stagingTable) takeAndClear(actionID uint64) (stagedContent, bool) {
	entry, ok := t[actionID]
	if !ok {
		return stagedContent{}, false
	}
	delete(t, actionID)
	return *entry, true
}
