package models

// All returns every persisted model in migration order
func All() []interface{} {
	return []interface{}{
		&ProductCategory{},
		&Product{},
		&OptionTemplate{},
		&DesignStyle{},
		&QuestionDemoItem{},
		&CustomTemplate{},
		&CustomQuestion{},
		&RequestQuestion{},
		&DesignRequest{},
		&AnswerHistoryEntry{},
		&DesignRequestEvent{},
		&DiscountCode{},
		&AIGenerationLog{},
		&FAQSubmission{},
	}
}
