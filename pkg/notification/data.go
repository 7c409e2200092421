package notification

import (
	"encoding/json"

	"gorm.io/datatypes"
)

func encodeData(data map[string]interface{}) datatypes.JSON {
	if len(data) == 0 {
		return datatypes.JSON("{}")
	}
	b, err := json.Marshal(data)
	if err != nil {
		return datatypes.JSON("{}")
	}
	return datatypes.JSON(b)
}
