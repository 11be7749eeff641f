// Package model provides the canonical entity types for rowsync.
//
// This package contains type definitions and pure helpers only. All other
// internal packages import model; model imports nothing internal. This
// ensures model remains the foundational layer with no circular
// dependencies.
//
// Key design constraints:
//   - Nullable numeric fields are *float64 - absent and zero are distinct
//   - All JSON tags use snake_case
//   - Monetary values round to 2 decimals, half away from zero (Round2)
//   - Warnings are identified by the (field, message) pair and are set at
//     entity creation; nothing downstream ever re-evaluates them
package model
