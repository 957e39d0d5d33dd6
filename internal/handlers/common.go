// common.go
//
// A view query engine serving named persisted views over internal and external tables
// Copyright (c) 2026 ViewLens Authors (https://github.com/viewlens/viewlens)
//
// This file is part of viewlens.
// viewlens is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// viewlens is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with viewlens.
// If not, see <https://www.gnu.org/licenses/>.

package handlers

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/viewlens/viewlens/internal/types"
)

// parseRowsPayload extracts the row batch from a deletion request body,
// accepting either {"rows": [...]} or a bare array. Row entries may be
// full row objects or plain id strings.
func parseRowsPayload(c *fiber.Ctx) ([]map[string]interface{}, error) {
	body := c.Body()
	if len(body) == 0 {
		return nil, types.Validation("Request body is required")
	}

	var wrapped struct {
		Rows []json.RawMessage `json:"rows"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil || wrapped.Rows == nil {
		if err := json.Unmarshal(body, &wrapped.Rows); err != nil {
			return nil, types.Validation("Invalid rows payload")
		}
	}

	rows := make([]map[string]interface{}, 0, len(wrapped.Rows))
	for _, raw := range wrapped.Rows {
		var asMap map[string]interface{}
		if err := json.Unmarshal(raw, &asMap); err == nil {
			rows = append(rows, asMap)
			continue
		}
		var asID string
		if err := json.Unmarshal(raw, &asID); err == nil && asID != "" {
			rows = append(rows, map[string]interface{}{"_id": asID})
		}
	}
	return rows, nil
}
