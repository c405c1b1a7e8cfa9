// Package model contains the approval engine's data model: versioned flow
// definitions, approval instances and tasks, the typed attribute values used
// by condition evaluation, and the typed error taxonomy shared by every layer.
//
// Definitions are typically loaded from YAML by the definition service;
// instances and tasks are created and transitioned exclusively by the engine.
package model
