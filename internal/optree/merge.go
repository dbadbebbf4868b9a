package optree

// MergeAll merges the given trees left to right over an empty group.
// Groups are merged key by key; any other value replaces the earlier
// value wholesale. Keys keep the position they first appeared at; later
// keys are appended. No input is modified.
func MergeAll(layers ...*Node) *Node {
	out := NewGroup()
	for _, layer := range layers {
		if layer == nil {
			continue
		}
		if !layer.IsGroup() {
			continue
		}
		mergeInto(out, layer)
	}
	return out
}

// mergeInto overlays src onto dst in place. dst must be owned by the
// caller; src is only read.
func mergeInto(dst, src *Node) {
	for _, key := range src.keys {
		srcVal := src.children[key]
		dstVal, exists := dst.Child(key)
		if exists && dstVal.IsGroup() && srcVal.IsGroup() {
			mergeInto(dstVal, srcVal)
			continue
		}
		dst.Set(key, srcVal.Clone())
	}
}
