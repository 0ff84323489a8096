package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func pathProperty(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": description,
	}
}

func noArguments() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Book
		{
			Name:        "book_open",
			Description: "Open a book directory (config.txt plus page<N> images), replace the training set with its pages and finalize it.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty("Absolute path to the book directory"),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "book_media",
			Description: "List the image, sound and video files attached to a page of the open book.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"page": map[string]interface{}{
						"type":        "integer",
						"description": "Page number",
					},
				},
				"required": []string{"page"},
			},
		},

		// Training
		{
			Name:        "training_add",
			Description: "Register a reference image under a page number. Must be called before training_finalize, or after training_clear.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty("Absolute path to the reference image"),
					"page": map[string]interface{}{
						"type":        "integer",
						"description": "Page number reported when this image is recognized",
					},
				},
				"required": []string{"path", "page"},
			},
		},
		{
			Name:        "training_finalize",
			Description: "Extract features from every registered image and enable recognition.",
			InputSchema: noArguments(),
		},
		{
			Name:        "training_clear",
			Description: "Remove every registered image and reset the tracking state.",
			InputSchema: noArguments(),
		},

		// Recognition
		{
			Name:        "frame_process",
			Description: "Look for a registered page in a camera frame. Returns the page number, centre, corners and rotation, or page -1 when nothing is recognized. Successive calls are treated as a video sequence.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty("Absolute path to the frame image"),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "frame_annotate",
			Description: "Process a frame like frame_process and return it as base64 PNG with the recognized page outlined.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty("Absolute path to the frame image"),
					"color": map[string]interface{}{
						"type":        "string",
						"description": "Outline colour as hex (e.g. #FF0000). Default: a colour derived from the page number",
					},
					"max_size": map[string]interface{}{
						"type":        "integer",
						"description": "Optional maximum width or height of the returned image",
					},
					"show_keypoints": map[string]interface{}{
						"type":        "boolean",
						"description": "Also mark the keypoints detected in the frame. Default false",
						"default":     false,
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "frame_crop_page",
			Description: "Process a frame like frame_process and return the bounding box of the recognized page, cropped from the frame, as base64 PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty("Absolute path to the frame image"),
					"margin": map[string]interface{}{
						"type":        "integer",
						"description": "Extra pixels kept around the page. Default 0",
						"default":     0,
					},
					"scale": map[string]interface{}{
						"type":        "number",
						"description": "Scale factor for the cropped image. Default 1.0",
						"default":     1.0,
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "tracker_status",
			Description: "Report the provider, parameters, registered images and the current page prediction.",
			InputSchema: noArguments(),
		},
	}
}
