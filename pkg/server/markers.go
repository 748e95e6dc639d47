package server

import (
	"strings"

	"github.com/crystal-mush/gomushcore/pkg/gamedb"
)

// WrapMarker wraps a message with the recipient's configured marker for
// the given event type ("SAY", "POSE", "EMIT", ...). The recipient's
// MARKER_<TYPE> attribute holds "open|close"; without a "|" the whole
// value is an open prefix. Missing attribute leaves msg unchanged.
func (g *Game) WrapMarker(player gamedb.DBRef, markerType string, msg string) string {
	attrName := "MARKER_" + strings.ToUpper(markerType)
	val := g.GetAttrTextByName(player, attrName)
	if val == "" {
		return msg
	}
	if idx := strings.IndexByte(val, '|'); idx >= 0 {
		return val[:idx] + msg + val[idx+1:]
	}
	return val + msg
}
