package types

import (
	"fmt"
	"slices"

	"fortio.org/safecast"
)

// StructMember describes one field of a struct type.
type StructMember struct {
	Name string
	Type TypeID
}

// StructInfo stores metadata for struct types.
type StructInfo struct {
	Name    string
	Members []StructMember
}

// RegisterStruct creates or finds a struct type. Structs are deduplicated by
// name and member list.
func (in *Interner) RegisterStruct(name string, members []StructMember) TypeID {
	for id := TypeID(1); int(id) < len(in.types); id++ {
		tt := in.types[id]
		if tt.Kind != KindStruct || int(tt.Payload) >= len(in.structs) {
			continue
		}
		info := in.structs[tt.Payload]
		if info.Name == name && slices.Equal(info.Members, members) {
			return id
		}
	}
	in.structs = append(in.structs, StructInfo{
		Name:    name,
		Members: slices.Clone(members),
	})
	slot, err := safecast.Conv[uint32](len(in.structs) - 1)
	if err != nil {
		panic(fmt.Errorf("struct info overflow: %w", err))
	}
	return in.internRaw(Type{Kind: KindStruct, Payload: slot})
}

// StructInfo retrieves struct metadata by TypeID.
func (in *Interner) StructInfo(id TypeID) (*StructInfo, bool) {
	tt, ok := in.Lookup(id)
	if !ok || tt.Kind != KindStruct {
		return nil, false
	}
	if tt.Payload == 0 || int(tt.Payload) >= len(in.structs) {
		return nil, false
	}
	return &in.structs[tt.Payload], true
}
