package feature

// ParseMetadata fully deserialises the feature's metadata blob via the
// external MetadataSource. Per spec.md §4.B, a deserialisation failure
// is logged but the branch is still marked parsed (with an empty
// result) — metadata is best-effort and never fails a feature.
func (f *ParsedFeature) ParseMetadata() error {
	if f.st.has(stateMetadata) {
		return nil
	}
	if f.info.Metadata != nil {
		blob, err := f.info.Metadata.Materialize(f.id)
		if err != nil {
			f.info.logger().Warn("feature: metadata materialise failed", "err", err, "featureID", f.id)
		} else {
			f.metaBlob = blob
		}
	}
	f.st |= stateMetadata
	return nil
}

// ParseMetaIds reads only the (type, recordID) index, deferring full
// hydration to Get.
func (f *ParsedFeature) ParseMetaIds() error {
	if f.st.has(stateMetaIds) {
		return nil
	}
	if f.info.Metadata != nil {
		idx, err := f.info.Metadata.Index(f.id)
		if err != nil {
			f.info.logger().Warn("feature: metadata index failed", "err", err, "featureID", f.id)
		} else {
			f.metaIdx = idx
		}
	}
	f.st |= stateMetaIds
	return nil
}

// Get returns the metadata value for typ, preferring an already
// materialised blob; failing that it consults the (type, recordID)
// index and hydrates the record on demand, per spec.md §4.B.
func (f *ParsedFeature) Get(typ TypeID) (string, bool) {
	if v, ok := f.metaBlob[typ]; ok {
		return v, true
	}
	recordID, ok := f.metaIdx[typ]
	if !ok || f.info.Metadata == nil {
		return "", false
	}
	v, err := f.info.Metadata.Hydrate(recordID)
	if err != nil {
		f.info.logger().Warn("feature: metadata hydrate failed", "err", err, "featureID", f.id, "recordID", recordID)
		return "", false
	}
	return v, true
}
