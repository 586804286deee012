package core

// Texture references resolved by the asset loader before a scene is built.
const (
	TextureEarth       = "earth"
	TextureGradient    = "gradient"
	TextureGlow        = "glow"
	TextureLabel       = "label"
	TextureLightColumn = "light_column"
	TextureAperture    = "aperture"
	TextureFlyLine     = "flyline"
	TextureOrbit       = "orbit"
	TextureFlow        = "flow"
)

// RequiredTextures lists every texture the globe scene references.
func RequiredTextures() []string {
	return []string{
		TextureEarth,
		TextureGradient,
		TextureGlow,
		TextureLabel,
		TextureLightColumn,
		TextureAperture,
		TextureFlyLine,
		TextureOrbit,
		TextureFlow,
	}
}
