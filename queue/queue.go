// Package queue implements the queue-name codec: the mapping between an
// in-process symbolic queue tag and the string stored in the byplay table's
// queue column. Adapted from the teacher's QueueTypes string-enum, but open
// ended rather than a closed Default/Priority pair, since a byplay queue tag
// is any host-chosen symbolic name.
package queue

import (
	"errors"
	"strings"
)

// Tag identifies a queue. It carries no namespace component — Default is the
// only tag the codec itself defines.
type Tag string

// Default is the queue tag substituted for a nil/empty queue at the
// scheduling API boundary, stored on disk as the literal string "default".
const Default Tag = "default"

const namespaceSeparator = "/"

// ErrNamespacedTag is returned by Encode when the tag contains a namespace
// component, which this layer never accepts.
var ErrNamespacedTag = errors.New("byplay: queue tag must not contain a namespace component")

// ErrEmptyTag is returned by Encode for the empty tag. Callers wanting "the
// default queue" must pass queue.Default explicitly; this layer never
// substitutes it.
var ErrEmptyTag = errors.New("byplay: queue tag must not be empty")

// Encode maps a Tag to the string stored in byplay.queue.
func Encode(tag Tag) (string, error) {
	if tag == "" {
		return "", ErrEmptyTag
	}
	if strings.Contains(string(tag), namespaceSeparator) {
		return "", ErrNamespacedTag
	}
	return string(tag), nil
}

// Decode maps a stored queue string back to a Tag.
func Decode(raw string) Tag {
	return Tag(raw)
}
