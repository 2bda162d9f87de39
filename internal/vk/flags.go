// Package vk implements the VK chat transport: the long-poll update feed,
// message sending, and the photo upload handshake used for reply attachments.
package vk

import "math/bits"

// Message flag names in canonical order. The decoder aligns mask digits to
// the tail of this list, so narrow masks only populate the trailing names.
var flagNames = []string{
	FlagUnread,
	FlagOutbox,
	FlagReplied,
	FlagImportant,
	FlagChat,
	FlagFriends,
	FlagSpam,
	FlagDeleted,
	FlagFixed,
	FlagMedia,
	FlagHidden,
}

const (
	FlagUnread    = "UNREAD"
	FlagOutbox    = "OUTBOX"
	FlagReplied   = "REPLIED"
	FlagImportant = "IMPORTANT"
	FlagChat      = "CHAT"
	FlagFriends   = "FRIENDS"
	FlagSpam      = "SPAM"
	FlagDeleted   = "DELETED"
	FlagFixed     = "FIXED"
	FlagMedia     = "MEDIA"
	FlagHidden    = "HIDDEN"
)

// Flags holds the named booleans decoded from a message bitmask. Names not
// covered by the mask's bit width are absent; use Has for default-false
// lookups.
type Flags map[string]bool

// Has reports whether the named flag decoded to true.
func (f Flags) Has(name string) bool { return f[name] }

// DecodeFlags expands a non-negative bitmask into named flags. The mask's
// binary digits carry no leading-zero padding; the least significant digit is
// aligned to the last flag name, walking leftward through the digit sequence.
// A zero mask decodes to a single false entry for the last name. Digits beyond
// the name list are dropped.
func DecodeFlags(mask uint64) Flags {
	return decodeMask(mask, flagNames)
}

func decodeMask(mask uint64, names []string) Flags {
	width := bits.Len64(mask)
	if width == 0 {
		width = 1
	}
	if width > len(names) {
		width = len(names)
	}

	flags := make(Flags, width)
	for i := 0; i < width; i++ {
		flags[names[len(names)-1-i]] = mask>>uint(i)&1 == 1
	}
	return flags
}
