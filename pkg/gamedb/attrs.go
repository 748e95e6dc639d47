package gamedb

// Built-in attribute numbers the command core reads directly.
const (
	A_Osucc     = 1
	A_Ofail     = 2
	A_Fail      = 3
	A_Succ      = 4
	A_Desc      = 6
	A_Odrop     = 8
	A_Drop      = 9
	A_Asucc     = 12
	A_Afail     = 13
	A_Adrop     = 14
	A_Startup   = 19
	A_Listen    = 26
	A_Enter     = 33
	A_Oxenter   = 34
	A_Aenter    = 35
	A_Lock      = 42
	A_Semaphore = 47
	A_Leave     = 50
	A_Oleave    = 51
	A_Aleave    = 52
	A_Oenter    = 53
	A_Oxleave   = 54
	A_Move      = 55
	A_Omove     = 56
	A_Amove     = 57
	A_Alias     = 58
	A_Lenter    = 59
	A_Lleave    = 60
	A_Luse      = 62
	A_Ealias    = 64
	A_Lalias    = 65
	A_Efail     = 66
	A_Oefail    = 67
	A_Aefail    = 68
	A_Lfail     = 69
	A_Olfail    = 70
	A_Alfail    = 71
	A_Lastsite  = 88
	A_Inprefix  = 89
	A_Prefix    = 90
	A_Lparent   = 98
	A_Lcontrol  = 99
)

// A_USER_START is the first attribute number available for user-defined attrs.
const A_USER_START = 256

// WellKnownAttrs maps built-in attribute numbers to their names. Numbers
// match the C TinyMUSH source exactly since imported databases use them.
var WellKnownAttrs = map[int]string{
	1:   "OSUCC",
	2:   "OFAIL",
	3:   "FAIL",
	4:   "SUCC",
	5:   "PASS",
	6:   "DESC",
	7:   "SEX",
	8:   "ODROP",
	9:   "DROP",
	12:  "ASUCC",
	13:  "AFAIL",
	14:  "ADROP",
	16:  "AUSE",
	17:  "CHARGES",
	18:  "RUNOUT",
	19:  "STARTUP",
	20:  "ACLONE",
	21:  "APAY",
	22:  "OPAY",
	23:  "PAY",
	24:  "COST",
	25:  "MONEY",
	26:  "LISTEN",
	27:  "AAHEAR",
	28:  "AMHEAR",
	29:  "AHEAR",
	30:  "LAST",
	31:  "QUEUEMAX",
	32:  "IDESC",
	33:  "ENTER",
	34:  "OXENTER",
	35:  "AENTER",
	36:  "ADESC",
	37:  "ODESC",
	38:  "RQUOTA",
	39:  "ACONNECT",
	40:  "ADISCONNECT",
	41:  "ALLOWANCE",
	42:  "LOCK",
	43:  "NAME",
	44:  "COMMENT",
	45:  "USE",
	46:  "OUSE",
	47:  "SEMAPHORE",
	48:  "TIMEOUT",
	49:  "QUOTA",
	50:  "LEAVE",
	51:  "OLEAVE",
	52:  "ALEAVE",
	53:  "OENTER",
	54:  "OXLEAVE",
	55:  "MOVE",
	56:  "OMOVE",
	57:  "AMOVE",
	58:  "ALIAS",
	59:  "LENTER",
	60:  "LLEAVE",
	61:  "LPAGE",
	62:  "LUSE",
	63:  "LGIVE",
	64:  "EALIAS",
	65:  "LALIAS",
	66:  "EFAIL",
	67:  "OEFAIL",
	68:  "AEFAIL",
	69:  "LFAIL",
	70:  "OLFAIL",
	71:  "ALFAIL",
	72:  "REJECT",
	73:  "AWAY",
	74:  "IDLE",
	75:  "UFAIL",
	76:  "OUFAIL",
	77:  "AUFAIL",
	79:  "TPORT",
	80:  "OTPORT",
	81:  "OXTPORT",
	82:  "ATPORT",
	84:  "LOGINDATA",
	85:  "LTPORT",
	86:  "LDROP",
	87:  "LRECEIVE",
	88:  "LASTSITE",
	89:  "INPREFIX",
	90:  "PREFIX",
	91:  "INFILTER",
	92:  "FILTER",
	93:  "LLINK",
	94:  "LTELOUT",
	95:  "FORWARDLIST",
	97:  "LUSER",
	98:  "LPARENT",
	99:  "LCONTROL",
	100: "VA",
	101: "VB",
	102: "VC",
	103: "VD",
	104: "VE",
	105: "VF",
	106: "VG",
	107: "VH",
	108: "VI",
	109: "VJ",
	110: "VK",
	111: "VL",
	112: "VM",
	113: "VN",
	114: "VO",
	115: "VP",
	116: "VQ",
	117: "VR",
	118: "VS",
	119: "VT",
	120: "VU",
	121: "VV",
	122: "VW",
	123: "VX",
	124: "VY",
	125: "VZ",
	129: "GFAIL",
	130: "OGFAIL",
	131: "AGFAIL",
	132: "RFAIL",
	133: "ORFAIL",
	134: "ARFAIL",
	135: "DFAIL",
	136: "ODFAIL",
	137: "ADFAIL",
	138: "TFAIL",
	139: "OTFAIL",
	140: "ATFAIL",
	141: "TOFAIL",
	142: "OTOFAIL",
	143: "ATOFAIL",
	144: "LOPEN",
	218: "LASTIP",
	222: "NAMEFORMAT",
}

// WellKnownAttrFlags maps built-in attribute numbers to their default flags.
// Matches the attr flag definitions in C TinyMUSH's attrs.h.
var WellKnownAttrFlags = map[int]int{
	5:   AFDark | AFInternal,
	25:  AFInternal,
	30:  AFInternal,
	38:  AFInternal | AFGod,
	41:  AFInternal | AFGod,
	42:  AFInternal | AFIsLock,
	43:  AFInternal,
	47:  AFInternal,
	48:  AFInternal,
	49:  AFInternal | AFGod,
	59:  AFInternal | AFIsLock,
	60:  AFInternal | AFIsLock,
	61:  AFInternal | AFIsLock,
	62:  AFInternal | AFIsLock,
	63:  AFInternal | AFIsLock,
	84:  AFDark | AFNoCMD | AFInternal,
	85:  AFInternal | AFIsLock,
	86:  AFInternal | AFIsLock,
	87:  AFInternal | AFIsLock,
	88:  AFDark | AFNoCMD | AFInternal | AFGod,
	93:  AFInternal | AFIsLock,
	94:  AFInternal | AFIsLock,
	97:  AFInternal | AFIsLock,
	98:  AFInternal | AFIsLock,
	99:  AFInternal | AFIsLock,
	218: AFDark | AFNoCMD | AFInternal | AFGod,
}
