// Package models contains the GORM persistence models of the engine. Domain
// types carry no ORM concerns; each model converts to and from its aggregate
// with ToDomain and FromDomain.
//
// Tables:
//   - quotes:            QuoteModel
//   - reservations:      ReservationModel
//   - stock_containers:  StockContainerModel
//   - stock_holdings:    StockHoldingModel
//   - sales_records:     SalesRecordModel
//   - outbox_events:     OutboxEntryModel
package models
