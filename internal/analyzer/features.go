package analyzer

// Spectrum holds one-sided magnitude spectra on a shared frequency axis.
// Frequencies are in cycles per unit of the time grid.
type Spectrum struct {
	Freq       []float64 `json:"freq"`
	Raw        []float64 `json:"raw"`
	Filtered   []float64 `json:"filtered"`
	Resolution float64   `json:"resolution"`
}

// Features summarises a Spectrum.
type Features struct {
	Dominant      float64 `json:"dominant"`
	RawPower      float64 `json:"rawPower"`
	FilteredPower float64 `json:"filteredPower"`
	AttenuationDB float64 `json:"attenuationDb"`
}
