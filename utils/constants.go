// File: utils/constants.go
package utils

import "time"

// BillingLockPrefix is the prefix used for Redis billing run lock keys.
const BillingLockPrefix = "billing:run:lock:"

// BillingLockTTL bounds how long a crashed run can keep the day locked.
const BillingLockTTL = 6 * time.Hour
