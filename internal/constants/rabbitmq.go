package constants

// Обменник ленты изменений. Fanout: каждая реплика каталога получает все
// события и сама решает, каким подпискам они интересны.
const (
	ChangeFeedExchange = "listing_changes_exchange"
)

// Ключи маршрутизации (для fanout информативны, но ходят в логи и заголовки).
const (
	RoutingKeyListingChanged = "catalog.listing.changed"
)
