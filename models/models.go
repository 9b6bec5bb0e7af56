package models

// All lists every model in migration order
func All() []interface{} {
	return []interface{}{
		&User{},
		&Product{},
		&Client{},
		&Invoice{},
		&Cart{},
		&CartItem{},
		&PickupGroup{},
		&PickupEntry{},
		&SegregationDoneLog{},
		&SystemAlert{},
		&OperatorSettings{},
	}
}
