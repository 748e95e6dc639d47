package gamedb

import "testing"

func TestSerializeBoolExp(t *testing.T) {
	konst := func(n int) *BoolExp { return &BoolExp{Type: BoolConst, Thing: n} }

	cases := []struct {
		name string
		in   *BoolExp
		want string
	}{
		{"nil", nil, ""},
		{"const", konst(3), "3"},
		{"attr", &BoolExp{Type: BoolAttr, Thing: 7, StrVal: "m*"}, "7:m*"},
		{"eval", &BoolExp{Type: BoolEval, Thing: 256, StrVal: "1"}, "256/1"},
		{"not", &BoolExp{Type: BoolNot, Sub1: konst(3)}, "(!3)"},
		{"indir", &BoolExp{Type: BoolIndir, Sub1: konst(2)}, "(@2)"},
		{"is", &BoolExp{Type: BoolIs, Sub1: konst(3)}, "(=3)"},
		{"carry", &BoolExp{Type: BoolCarry, Sub1: konst(3)}, "(+3)"},
		{"owner", &BoolExp{Type: BoolOwner, Sub1: konst(3)}, "($3)"},
		{"and", &BoolExp{Type: BoolAnd, Sub1: konst(1), Sub2: konst(3)}, "(1&3)"},
		{"or", &BoolExp{Type: BoolOr, Sub1: konst(1), Sub2: konst(3)}, "(1|3)"},
		{
			"nested",
			&BoolExp{
				Type: BoolAnd,
				Sub1: &BoolExp{Type: BoolNot, Sub1: konst(5)},
				Sub2: &BoolExp{Type: BoolOr, Sub1: konst(1), Sub2: konst(2)},
			},
			"((!5)&(1|2))",
		},
	}
	for _, tc := range cases {
		if got := SerializeBoolExp(tc.in); got != tc.want {
			t.Errorf("%s: SerializeBoolExp = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestObjectAttrHelpers(t *testing.T) {
	obj := &Object{DBRef: 5}
	obj.SetAttr(10, "hello")
	if got := obj.GetAttr(10); got != "hello" {
		t.Errorf("GetAttr = %q", got)
	}
	obj.SetAttr(10, "replaced")
	if got := obj.GetAttr(10); got != "replaced" {
		t.Errorf("GetAttr after replace = %q", got)
	}
	obj.SetAttr(10, "")
	if got := obj.GetAttr(10); got != "" {
		t.Errorf("GetAttr after clear = %q", got)
	}
	if len(obj.Attrs) != 0 {
		t.Errorf("cleared attr left %d entries", len(obj.Attrs))
	}
}

func TestObjTypeFromFlags(t *testing.T) {
	obj := &Object{}
	obj.Flags[0] = int(TypeExit) | FlagDark
	if got := obj.ObjType(); got != TypeExit {
		t.Errorf("ObjType = %v, want exit", got)
	}
}
