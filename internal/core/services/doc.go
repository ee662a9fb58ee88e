// Package services holds the pipeline's core logic: building and loading
// vector collections, retrieving context for a question, synthesising a
// grounded answer and browsing the procedure catalogue.
//
// Services implement the driving ports and depend only on driven ports,
// so every collaborator can be replaced by a fake in tests.
package services
