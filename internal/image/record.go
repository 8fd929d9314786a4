package image

// Records are the on-disk form of a module. Handles are replaced by
// indices local to the image; -1 means none. Links to nodes of other
// assemblies are kept by name and resolved after loading.

type refRecord struct {
	Namespace string `msgpack:"ns,omitempty"`
	Name      string `msgpack:"n,omitempty"`
}

type attrRecord struct {
	Type     refRecord `msgpack:"t"`
	Args     []string  `msgpack:"a,omitempty"`
	Multiple bool      `msgpack:"m,omitempty"`
}

type securityRecord struct {
	Action      uint8        `msgpack:"act"`
	Permissions []attrRecord `msgpack:"p"`
}

type identityRecord struct {
	Name           string `msgpack:"name"`
	Version        string `msgpack:"ver,omitempty"`
	Culture        string `msgpack:"cul,omitempty"`
	PublicKeyToken string `msgpack:"pkt,omitempty"`
}

type resourceRecord struct {
	Name   string `msgpack:"n"`
	Data   []byte `msgpack:"d"`
	Public bool   `msgpack:"p,omitempty"`
}

// typeLink points at a type of this image (Local >= 0) or of another
// assembly by full name.
type typeLink struct {
	Local    int32  `msgpack:"l"`
	Assembly string `msgpack:"asm,omitempty"`
	FullName string `msgpack:"n,omitempty"`
}

// memberLink points at a member of this image or of another assembly by
// declaring type and signature.
type memberLink struct {
	Local     int32  `msgpack:"l"`
	Assembly  string `msgpack:"asm,omitempty"`
	Type      string `msgpack:"t,omitempty"`
	Name      string `msgpack:"n,omitempty"`
	Signature string `msgpack:"s,omitempty"`
}

type typeRecord struct {
	Namespace  string       `msgpack:"ns,omitempty"`
	Name       string       `msgpack:"n"`
	Flags      uint16       `msgpack:"f,omitempty"`
	Base       typeLink     `msgpack:"b"`
	Declaring  int32        `msgpack:"d"`
	Members    []int32      `msgpack:"m,omitempty"`
	Attributes []attrRecord `msgpack:"a,omitempty"`
}

type memberRecord struct {
	Name       string       `msgpack:"n"`
	Kind       uint8        `msgpack:"k"`
	Attributes []attrRecord `msgpack:"a,omitempty"`

	Params    []refRecord `msgpack:"p,omitempty"`
	Return    refRecord   `msgpack:"r,omitempty"`
	Type      refRecord   `msgpack:"t,omitempty"`
	Handler   refRecord   `msgpack:"h,omitempty"`
	Access    uint8       `msgpack:"acc,omitempty"`
	Flags     uint8       `msgpack:"f,omitempty"`
	Static    bool        `msgpack:"st,omitempty"`
	Overrides memberLink  `msgpack:"ov"`
	Getter    int32       `msgpack:"get"`
	Setter    int32       `msgpack:"set"`
	Add       int32       `msgpack:"add"`
	Remove    int32       `msgpack:"rem"`
	Nested    int32       `msgpack:"nt"`
}

type moduleRecord struct {
	Identity         identityRecord   `msgpack:"id"`
	MVID             string           `msgpack:"mvid,omitempty"`
	Kind             uint8            `msgpack:"kind"`
	PEKind           uint8            `msgpack:"pe"`
	Types            []typeRecord     `msgpack:"types"`
	Members          []memberRecord   `msgpack:"members"`
	Resources        []resourceRecord `msgpack:"res,omitempty"`
	Attributes       []attrRecord     `msgpack:"attrs,omitempty"`
	ModuleAttributes []attrRecord     `msgpack:"mattrs,omitempty"`
	Security         []securityRecord `msgpack:"sec,omitempty"`
	References       []identityRecord `msgpack:"refs,omitempty"`
	EntryPoint       int32            `msgpack:"entry"`
	Signing          signingRecord    `msgpack:"sign"`
}

type signingRecord struct {
	Source    uint8  `msgpack:"src,omitempty"`
	KeyFile   string `msgpack:"key,omitempty"`
	Container string `msgpack:"box,omitempty"`
	Delay     bool   `msgpack:"delay,omitempty"`
}
