package catalog

// DefaultDescriptors is the built-in model table.
func DefaultDescriptors() []Descriptor {
	return []Descriptor{
		{
			ID:           "model1",
			Name:         "Multi-Crop Analysis",
			Description:  "Advanced detection for fruits, vegetables & field crops",
			ArtifactPath: "model1_multicrop.onnx",
			InputSize:    Size{Width: 224, Height: 224},
			Channels:     3,
			Classes: []string{
				"apple_scab", "apple_black_rot", "apple_cedar_rust", "apple_healthy",
				"cherry_powdery_mildew", "cherry_healthy",
				"corn_gray_leaf_spot", "corn_common_rust", "corn_northern_leaf_blight", "corn_healthy",
				"grape_black_rot", "grape_black_measles", "grape_leaf_blight", "grape_healthy",
				"peach_bacterial_spot", "peach_healthy",
				"orange_haunglongbing", "orange_healthy",
				"pepper_bacterial_spot", "pepper_healthy",
				"potato_early_blight", "potato_late_blight", "potato_healthy",
				"soybean_healthy", "raspberry_healthy",
				"strawberry_leaf_scorch", "strawberry_healthy",
				"tomato_bacterial_spot", "tomato_early_blight", "tomato_late_blight",
				"tomato_leaf_mold", "tomato_septoria_leaf_spot", "tomato_spider_mites",
				"tomato_target_spot", "tomato_yellow_leaf_curl_virus", "tomato_mosaic_virus",
				"tomato_healthy",
			},
		},
		{
			ID:           "model2",
			Name:         "Staple Crops Analysis",
			Description:  "Specialized for major grain and cash crops",
			ArtifactPath: "model2_staple_crops.onnx",
			InputSize:    Size{Width: 224, Height: 224},
			Channels:     3,
			Classes: []string{
				"wheat_brown_rust", "wheat_yellow_rust", "wheat_stripe_rust", "wheat_powdery_mildew", "wheat_healthy",
				"maize_blight", "maize_common_rust", "maize_gray_leaf_spot", "maize_northern_corn_leaf_blight", "maize_healthy",
				"cotton_bacterial_blight", "cotton_curl_virus", "cotton_fusarium_wilt", "cotton_healthy",
				"sugarcane_mosaic", "sugarcane_red_rot", "sugarcane_rust", "sugarcane_smut", "sugarcane_healthy",
				"rice_bacterial_blight", "rice_blast", "rice_brown_spot", "rice_tungro", "rice_sheath_blight", "rice_healthy",
			},
		},
		{
			ID:           "model3",
			Name:         "Banana Crop Analysis",
			Description:  "Specialized banana disease detection and analysis",
			ArtifactPath: "model3_banana.onnx",
			InputSize:    Size{Width: 224, Height: 224},
			Channels:     3,
			Classes: []string{
				"banana_black_sigatoka", "banana_yellow_sigatoka", "banana_panama_disease",
				"banana_bract_mosaic_virus", "banana_bunchy_top_virus", "banana_healthy",
			},
		},
	}
}

// Default builds the built-in table rooted at modelFolder.
func Default(modelFolder string) *Catalog {
	c, err := Build(modelFolder, DefaultDescriptors())
	if err != nil {
		// The built-in table is static; a failure here is a programming error.
		panic(err)
	}
	return c
}
