// README: Credits value object (platform prepaid currency, always whole units).
package types

import "strconv"

type Credits int64

func (c Credits) String() string {
	return strconv.FormatInt(int64(c), 10)
}
