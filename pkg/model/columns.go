package model

// Column names shared by the instance tables and every downstream merge.
const (
	ColCallbackObject            = "callback_object"
	ColCallbackStartTimestamp    = "callback_start_timestamp"
	ColCallbackEndTimestamp      = "callback_end_timestamp"
	ColIsIntraProcess            = "is_intra_process"
	ColPublisherHandle           = "publisher_handle"
	ColMessage                   = "message"
	ColAppPublishTimestamp       = "application_publish_timestamp"
	ColMidPublishTimestamp       = "middleware_publish_timestamp"
	ColIntraPublishTimestamp     = "intra_publish_timestamp"
	ColMessageConstructTimestamp = "message_construct_timestamp"
	ColOriginalMessage           = "original_message"
	ColConstructedMessage        = "constructed_message"
	ColDispatchTimestamp         = "dispatch_timestamp"
	ColIntraDispatchTimestamp    = "intra_dispatch_timestamp"
	ColTransportWriteTimestamp   = "transport_write_timestamp"
	ColTransportAvailTimestamp   = "transport_available_timestamp"
	ColTransportTakeTimestamp    = "transport_take_timestamp"
	ColSourceTimestamp           = "source_timestamp"
	ColAddr                      = "addr"
	ColAddrFrom                  = "addr_from"
	ColAddrTo                    = "addr_to"
	ColStampBindTimestamp        = "stamp_bind_timestamp"
	ColAddrBindTimestamp         = "addr_bind_timestamp"
)
