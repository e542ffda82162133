package data

import "eta/internal/serial"

// LabeledVideoRecordClass is the class name of LabeledVideoRecord.
const LabeledVideoRecordClass = "eta.core.data.LabeledVideoRecord"

// LabeledVideoRecord labels a video. Group optionally ties clips sampled from
// the same parent video together.
type LabeledVideoRecord struct {
	VideoPath string           `record:"video_path,required"`
	Label     string           `record:"label,required"`
	Group     Optional[string] `record:"group,optional"`
}

// LabeledVideoRecordType decodes LabeledVideoRecord maps.
var LabeledVideoRecordType = RegisterElement(NewRecordType[LabeledVideoRecord](LabeledVideoRecordClass))

// NewLabeledVideoRecord returns a record without a group.
func NewLabeledVideoRecord(videoPath, label string) *LabeledVideoRecord {
	return &LabeledVideoRecord{VideoPath: videoPath, Label: label}
}

// ToMap implements Element.
func (r *LabeledVideoRecord) ToMap() (serial.Map, error) {
	return RecordToMap(r)
}
