package domain

// KeyPrefix is the default storage namespace prefix for all keys.
const KeyPrefix = "tensordex:"
