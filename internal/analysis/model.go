package analysis

// Result is the structured outcome of a vision analysis. Failure is a
// value, not an error: Success false with ErrorMessage set means the
// model answered but found no usable food data.
type Result struct {
	Success      bool   `json:"success"`
	RequestID    string `json:"requestId"`
	Items        []Item `json:"items"`
	ErrorMessage string `json:"errorMessage,omitempty"`
	Transcript   string `json:"transcript,omitempty"`
}

type Item struct {
	Name             string        `json:"name"`
	Confidence       float64       `json:"confidence"`
	ServingSizeGrams float64       `json:"serving_size_grams"`
	Nutrition        ItemNutrition `json:"nutrition"`
}

type ItemNutrition struct {
	Calories       float64 `json:"calories"`
	ProteinG       float64 `json:"protein_g"`
	FatG           float64 `json:"fat_g"`
	CarbohydratesG float64 `json:"carbohydrates_g"`
	SugarG         float64 `json:"sugar_g"`
	FiberG         float64 `json:"fiber_g"`
}

func failedResult(requestID, msg string) *Result {
	return &Result{
		Success:      false,
		RequestID:    requestID,
		Items:        []Item{},
		ErrorMessage: msg,
	}
}
