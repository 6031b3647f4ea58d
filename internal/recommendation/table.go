package recommendation

// Treatment is one curated entry keyed by the exact class label.
type Treatment struct {
	Key  string `yaml:"key"`
	Text string `yaml:"text"`
}

// KeywordTreatment is a generic treatment for a disease family.
type KeywordTreatment struct {
	Keyword string
	Text    string
}

const (
	DefaultHealthyText = "Continue current management practices. Monitor plants regularly for early disease detection. Maintain proper nutrition, irrigation, and cultural practices. Consider preventive treatments during high-risk periods."

	DefaultDiseasedText = "Consult with local agricultural extension services for specific treatment protocols. Implement integrated disease management including resistant varieties, cultural practices, biological controls, and targeted chemical applications. Consider soil health and environmental factors."

	cropAdaptedNote = "\n\nNote: Treatment adapted for similar %s disease. Consult agricultural extension for specific strain identification."

	generalNote = "\n\nGeneral recommendation based on disease type. Consult local experts for specific treatment protocols."
)

// DefaultTreatments is the curated table in lookup order. Crop-prefix
// fallback picks the first sibling in this order.
func DefaultTreatments() []Treatment {
	return []Treatment{
		// Apple
		{"apple_scab", "Apply preventive fungicide sprays containing Captan, Mancozeb, or Strobilurin fungicides during wet spring conditions. Remove and destroy fallen leaves. Improve air circulation through proper pruning. Consider resistant varieties for future plantings."},
		{"apple_black_rot", "Prune and destroy all infected branches and mummified fruits. Apply copper-based fungicides during dormant season. Ensure proper orchard drainage and avoid overhead irrigation. Remove cankers from trunk and major branches."},
		{"apple_cedar_rust", "Remove nearby juniper/cedar trees within 1-2 miles if possible. Apply preventive fungicide sprays (Myclobutanil, Propiconazole) from pink bud stage through petal fall. Use resistant apple varieties."},

		// Cherry
		{"cherry_powdery_mildew", "Apply sulfur-based fungicides or systemic fungicides like Myclobutanil. Improve air circulation through proper pruning. Avoid overhead watering. Apply treatments every 7-14 days during humid conditions."},

		// Corn
		{"corn_gray_leaf_spot", "Use resistant hybrid varieties. Practice crop rotation with non-host crops. Apply foliar fungicides (Strobilurin group) if disease pressure is high. Manage crop residue through tillage."},
		{"corn_common_rust", "Plant resistant hybrids when available. Apply fungicides (Triazole or Strobilurin) only if infection occurs before tasseling in susceptible varieties. Monitor weather conditions favoring disease."},
		{"corn_northern_leaf_blight", "Use resistant varieties as primary control. Apply fungicides during critical growth stages (V8-R1) if conditions favor disease development. Rotate with non-host crops."},

		// Tomato
		{"tomato_early_blight", "Apply fungicides containing Chlorothalonil, Mancozeb, or Copper compounds. Provide adequate plant spacing for air circulation. Use drip irrigation to avoid leaf wetness. Remove infected lower leaves."},
		{"tomato_late_blight", "Apply preventive fungicides (Metalaxyl + Mancozeb, Cymoxanil). Remove and destroy infected plants immediately. Avoid overhead irrigation. Ensure good drainage and air circulation."},
		{"tomato_bacterial_spot", "Use copper-based bactericides. Plant disease-free seeds and transplants. Provide adequate spacing. Avoid working with wet plants. Remove infected plant debris."},

		// Rice
		{"rice_blast", "Apply systemic fungicides containing Tricyclazole or Azoxystrobin. Use resistant varieties. Manage nitrogen fertilization - avoid excessive nitrogen. Ensure proper field drainage."},
		{"rice_bacterial_blight", "Use resistant varieties as primary control. Apply copper-based bactericides during early infection stages. Avoid excessive nitrogen fertilization. Manage irrigation to prevent prolonged flooding."},

		// Wheat
		{"wheat_stripe_rust", "Apply fungicides containing Triazole compounds (Propiconazole, Tebuconazole) at first sign of infection. Use resistant varieties. Monitor weather conditions favoring rust development."},
		{"wheat_powdery_mildew", "Apply sulfur-based fungicides or systemic fungicides. Ensure adequate plant spacing. Use resistant varieties. Avoid excessive nitrogen fertilization."},

		// Banana
		{"banana_black_sigatoka", "Apply systemic fungicides (Propiconazole, Tebuconazole) on rotation schedule. Remove infected leaves regularly. Improve plantation drainage. Use resistant cultivars where available."},
		{"banana_panama_disease", "No chemical control available. Remove and destroy infected plants immediately. Plant resistant varieties (Cavendish alternatives). Improve soil drainage and avoid replanting in infected areas."},

		// Cotton
		{"cotton_bacterial_blight", "Use pathogen-free seeds. Apply copper-based bactericides during humid conditions. Provide adequate plant spacing. Avoid overhead irrigation and excessive nitrogen."},
	}
}

// DefaultKeywordTreatments is checked in order; the first keyword found wins.
func DefaultKeywordTreatments() []KeywordTreatment {
	return []KeywordTreatment{
		{"rust", "Apply fungicides containing Triazole compounds. Use resistant varieties. Monitor environmental conditions."},
		{"blight", "Apply broad-spectrum fungicides. Improve air circulation and drainage. Remove infected plant material."},
		{"spot", "Use copper-based fungicides or bactericides. Ensure good sanitation practices."},
		{"mildew", "Apply sulfur-based or systemic fungicides. Improve air circulation."},
		{"virus", "Remove infected plants immediately. Control insect vectors. Use virus-free planting material."},
		{"wilt", "Improve soil drainage. Use resistant varieties. Apply appropriate fungicides."},
	}
}
