package normalize

import (
	"github.com/agrisage/agrisage/backend/internal/providers"
	"github.com/agrisage/agrisage/backend/pkg/models"
)

// Soil flattens the soil type classification and the layered property lookup
// into a single nullable summary. Only the topmost layer of each property is
// read; a missing property stays nil rather than zero.
func Soil(soilType *providers.SoilTypeRaw, props *providers.SoilPropertyRaw) *models.SoilSummary {
	s := &models.SoilSummary{}
	if soilType != nil && soilType.Properties.MostProbableSoilType != "" {
		v := soilType.Properties.MostProbableSoilType
		s.SoilType = &v
	}
	if props == nil {
		return s
	}

	s.TextureClass = propString(props, "texture_class")
	s.PH = propFloat(props, "ph")
	s.NitrogenTotal = propFloat(props, "nitrogen_total")
	s.Phosphorous = propFloat(props, "phosphorous_extractable")
	s.Potassium = propFloat(props, "potassium_extractable")
	s.Magnesium = propFloat(props, "magnesium_extractable")
	s.Calcium = propFloat(props, "calcium_extractable")
	s.Iron = propFloat(props, "iron_extractable")
	s.Zinc = propFloat(props, "zinc_extractable")
	s.Sulphur = propFloat(props, "sulphur_extractable")
	s.CarbonTotal = propFloat(props, "carbon_total")
	s.CarbonOrganic = propFloat(props, "carbon_organic")
	s.BulkDensity = propFloat(props, "bulk_density")
	s.StoneContent = propFloat(props, "stone_content")
	s.SiltContent = propFloat(props, "silt_content")
	s.ClayContent = propFloat(props, "clay_content")
	s.SandContent = propFloat(props, "sand_content")
	s.CationExchange = propFloat(props, "cation_exchange_capacity")
	s.Aluminium = propFloat(props, "aluminium_extractable")
	return s
}

// propFloat reads the topmost layer's numeric value for a property.
// JSON numbers arrive as float64; integral string encodings are not handled
// because the vendor never emits them for numeric properties.
func propFloat(props *providers.SoilPropertyRaw, name string) *float64 {
	layers, ok := props.Property[name]
	if !ok || len(layers) == 0 {
		return nil
	}
	switch v := layers[0].Value.Value.(type) {
	case float64:
		return &v
	case int:
		f := float64(v)
		return &f
	default:
		return nil
	}
}

func propString(props *providers.SoilPropertyRaw, name string) *string {
	layers, ok := props.Property[name]
	if !ok || len(layers) == 0 {
		return nil
	}
	if v, ok := layers[0].Value.Value.(string); ok && v != "" {
		return &v
	}
	return nil
}
