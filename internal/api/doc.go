// Package api provides an HTTP client for the gateway's REST configuration
// service.
//
// The service owns models, parameters (with their modbus register
// mappings), devices, device-parameter mappings and rules. Create calls
// return the new entity's ID, which later calls of a submission reference.
//
// # Null handling
//
// Request payloads send empty optional entries as JSON null, never as an
// empty string. Use NullString, NullInt and NullFloat when building them.
//
// # Usage Example
//
//	client := api.NewClient("http://192.168.1.50:9000")
//
//	id, err := client.CreateModel(ctx, &api.CreateModelRequest{
//	    Brand:     "Schneider",
//	    Model:     "PM5350",
//	    DevType:   "Power Meter",
//	    Interface: 1,
//	})
//	if err != nil {
//	    fmt.Println(api.GetShortErrorMessage(err))
//	    fmt.Println(api.GetTroubleshootingHint(err))
//	}
//
// # Error Handling
//
// Every failure is an *APIError carrying a category (network, timeout,
// HTTP, rejected, parse). The message of an HTTP error is the backend's
// "error" member when it sent one, otherwise the start of the body.
//
// Reads are retried on retryable errors; writes are never retried.
package api
