package server

import (
	"github.com/crystal-mush/gomushcore/pkg/eval"
	"github.com/crystal-mush/gomushcore/pkg/gamedb"
)

var _ eval.GameState = (*Game)(nil)

// CanReadAttrGS is the evaluator's attribute-read gate. rawValue is the
// stored attribute value, info prefix included.
func (g *Game) CanReadAttrGS(player, obj gamedb.DBRef, attrNum int, rawValue string) bool {
	info, _ := parseAttrInfo(rawValue)
	return CanReadAttr(g, player, obj, g.DB.AttrFlags(attrNum), info.Flags, info.Owner)
}
