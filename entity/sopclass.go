package entity

// Presentation state storage SOP classes (PS3.4 Annex B). They carry display
// parameters for other instances and are not indexed.
const (
	GrayscaleSoftcopyPresentationStateStorage       = "1.2.840.10008.5.1.4.1.1.11.1"
	ColorSoftcopyPresentationStateStorage           = "1.2.840.10008.5.1.4.1.1.11.2"
	PseudoColorSoftcopyPresentationStateStorage     = "1.2.840.10008.5.1.4.1.1.11.3"
	BlendingSoftcopyPresentationStateStorage        = "1.2.840.10008.5.1.4.1.1.11.4"
	XAXRFGrayscaleSoftcopyPresentationStateStorage  = "1.2.840.10008.5.1.4.1.1.11.5"
	GrayscalePlanarMPRVolumetricPresentationState   = "1.2.840.10008.5.1.4.1.1.11.6"
	CompositingPlanarMPRVolumetricPresentationState = "1.2.840.10008.5.1.4.1.1.11.7"
	AdvancedBlendingPresentationStateStorage        = "1.2.840.10008.5.1.4.1.1.11.8"
	VolumeRenderingVolumetricPresentationState      = "1.2.840.10008.5.1.4.1.1.11.9"
	SegmentedVolumeRenderingPresentationState       = "1.2.840.10008.5.1.4.1.1.11.10"
	MultipleVolumeRenderingPresentationState        = "1.2.840.10008.5.1.4.1.1.11.11"
)

// Storage SOP classes used by callers and tests.
const (
	CTImageStorage        = "1.2.840.10008.5.1.4.1.1.2"
	MRImageStorage        = "1.2.840.10008.5.1.4.1.1.4"
	PETImageStorage       = "1.2.840.10008.5.1.4.1.1.128"
	RTStructureSetStorage = "1.2.840.10008.5.1.4.1.1.481.3"
	RTDoseStorage         = "1.2.840.10008.5.1.4.1.1.481.2"
	RTPlanStorage         = "1.2.840.10008.5.1.4.1.1.481.5"
)

var presentationStateClasses = map[string]struct{}{
	GrayscaleSoftcopyPresentationStateStorage:       {},
	ColorSoftcopyPresentationStateStorage:           {},
	PseudoColorSoftcopyPresentationStateStorage:     {},
	BlendingSoftcopyPresentationStateStorage:        {},
	XAXRFGrayscaleSoftcopyPresentationStateStorage:  {},
	GrayscalePlanarMPRVolumetricPresentationState:   {},
	CompositingPlanarMPRVolumetricPresentationState: {},
	AdvancedBlendingPresentationStateStorage:        {},
	VolumeRenderingVolumetricPresentationState:      {},
	SegmentedVolumeRenderingPresentationState:       {},
	MultipleVolumeRenderingPresentationState:        {},
}

// IsPresentationStateClass reports whether uid is a presentation state class.
func IsPresentationStateClass(uid string) bool {
	_, ok := presentationStateClasses[uid]
	return ok
}
