package types

const (
	ActionRabbitMQConnected       = "rabbitmq_connected"
	ActionRabbitConnectionClosed  = "rabbitmq_connection_closed"
	ActionRabbitConnectionClosing = "rabbitmq_connection_closing"
	ActionRabbitReconnected       = "rabbitmq_reconnection_success"

	ActionDatabaseTransactionFailed = "database_transaction_failed"
	ActionExternalServiceFailed     = "external_service_failed"
	ActionCacheFailed               = "cache_failed"

	ActionRequestTrip  = "request_trip"
	ActionAcceptTrip   = "accept_trip"
	ActionArriveTrip   = "arrive_trip"
	ActionStartTrip    = "start_trip"
	ActionCompleteTrip = "complete_trip"
	ActionCancelTrip   = "cancel_trip"
	ActionIngestFix    = "ingest_location"
	ActionNotify       = "notify"
	ActionWSConnected  = "ws_connected"
	ActionWSDisconnect = "ws_disconnected"
	ActionWSEvicted    = "ws_evicted"
	ActionWSHubClose   = "ws_hub_close"
)
