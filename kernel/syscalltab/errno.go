package syscalltab

import "golang.org/x/sys/unix"

// Linux x86-64 errno numbers. These are fixed, architecture-defined
// values (identical across every Linux syscall ABI this kernel targets),
// not a library or design choice, so they're reproduced as constants
// directly rather than sourced from a Darwin-side errno header that
// wouldn't have them anyway.
const (
	EPERM        = 1
	ENOENT       = 2
	ESRCH        = 3
	EINTR        = 4
	EIO          = 5
	ENXIO        = 6
	E2BIG        = 7
	ENOEXEC      = 8
	EBADF        = 9
	ECHILD       = 10
	EAGAIN       = 11
	ENOMEM       = 12
	EACCES       = 13
	EFAULT       = 14
	ENOTBLK      = 15
	EBUSY        = 16
	EEXIST       = 17
	EXDEV        = 18
	ENODEV       = 19
	ENOTDIR      = 20
	EISDIR       = 21
	EINVAL       = 22
	ENFILE       = 23
	EMFILE       = 24
	ENOTTY       = 25
	ETXTBSY      = 26
	EFBIG        = 27
	ENOSPC       = 28
	ESPIPE       = 29
	EROFS        = 30
	EMLINK       = 31
	EPIPE        = 32
	EDOM         = 33
	ERANGE       = 34
	EDEADLK      = 35
	ENAMETOOLONG = 36
	ENOLCK       = 37
	ENOSYS       = 38
	ENOTEMPTY    = 39
	ELOOP        = 40
	ENOMSG       = 42
	EIDRM        = 43
	ENOSTR       = 60
	ENODATA      = 61
	ETIME        = 62
	ENOSR        = 63
	EREMOTE      = 66
	EPROTO       = 71
	EOVERFLOW    = 75
	EBADMSG      = 74
	EILSEQ       = 84
	EUSERS       = 87
	ENOTSOCK     = 88
	EDESTADDRREQ = 89
	EMSGSIZE     = 90
	EPROTOTYPE   = 91
	ENOPROTOOPT  = 92
	EPROTONOSUPPORT = 93
	ESOCKTNOSUPPORT = 94
	EOPNOTSUPP   = 95
	EPFNOSUPPORT = 96
	EAFNOSUPPORT = 97
	EADDRINUSE   = 98
	EADDRNOTAVAIL = 99
	ENETDOWN     = 100
	ENETUNREACH  = 101
	ENETRESET    = 102
	ECONNABORTED = 103
	ECONNRESET   = 104
	ENOBUFS      = 105
	EISCONN      = 106
	ENOTCONN     = 107
	ESHUTDOWN    = 108
	ETOOMANYREFS = 109
	ETIMEDOUT    = 110
	ECONNREFUSED = 111
	EHOSTDOWN    = 112
	EHOSTUNREACH = 113
	EALREADY     = 114
	EINPROGRESS  = 115
	ESTALE       = 116
	EDQUOT       = 122
	ECANCELED    = 125
)

// darwinToLinuxErrno translates a host (Darwin) errno, as returned by
// golang.org/x/sys/unix syscalls, to the Linux errno number a guest
// expects back from a negative syscall return, mirroring
// darwin_to_linux_errno's role in the source this is grounded on.
var darwinToLinuxErrno = map[unix.Errno]int64{
	unix.EPERM:        EPERM,
	unix.ENOENT:       ENOENT,
	unix.ESRCH:        ESRCH,
	unix.EINTR:        EINTR,
	unix.EIO:          EIO,
	unix.ENXIO:        ENXIO,
	unix.E2BIG:        E2BIG,
	unix.ENOEXEC:      ENOEXEC,
	unix.EBADF:        EBADF,
	unix.ECHILD:       ECHILD,
	unix.EAGAIN:       EAGAIN,
	unix.ENOMEM:       ENOMEM,
	unix.EACCES:       EACCES,
	unix.EFAULT:       EFAULT,
	unix.ENOTBLK:      ENOTBLK,
	unix.EBUSY:        EBUSY,
	unix.EEXIST:       EEXIST,
	unix.EXDEV:        EXDEV,
	unix.ENODEV:       ENODEV,
	unix.ENOTDIR:      ENOTDIR,
	unix.EISDIR:       EISDIR,
	unix.EINVAL:       EINVAL,
	unix.ENFILE:       ENFILE,
	unix.EMFILE:       EMFILE,
	unix.ENOTTY:       ENOTTY,
	unix.ETXTBSY:      ETXTBSY,
	unix.EFBIG:        EFBIG,
	unix.ENOSPC:       ENOSPC,
	unix.ESPIPE:       ESPIPE,
	unix.EROFS:        EROFS,
	unix.EMLINK:       EMLINK,
	unix.EPIPE:        EPIPE,
	unix.EDOM:         EDOM,
	unix.ERANGE:       ERANGE,
	unix.EDEADLK:      EDEADLK,
	unix.ENAMETOOLONG: ENAMETOOLONG,
	unix.ENOLCK:       ENOLCK,
	unix.ENOSYS:       ENOSYS,
	unix.ENOTEMPTY:    ENOTEMPTY,
	unix.ELOOP:        ELOOP,
	unix.ENOMSG:       ENOMSG,
	unix.EIDRM:        EIDRM,
	unix.EOVERFLOW:    EOVERFLOW,
	unix.EBADMSG:      EBADMSG,
	unix.EILSEQ:       EILSEQ,
	unix.EUSERS:       EUSERS,
	unix.ENOTSOCK:     ENOTSOCK,
	unix.EDESTADDRREQ: EDESTADDRREQ,
	unix.EMSGSIZE:     EMSGSIZE,
	unix.EPROTOTYPE:   EPROTOTYPE,
	unix.ENOPROTOOPT:  ENOPROTOOPT,
	unix.EPROTONOSUPPORT: EPROTONOSUPPORT,
	unix.ESOCKTNOSUPPORT: ESOCKTNOSUPPORT,
	unix.EOPNOTSUPP:   EOPNOTSUPP,
	unix.EPFNOSUPPORT: EPFNOSUPPORT,
	unix.EAFNOSUPPORT: EAFNOSUPPORT,
	unix.EADDRINUSE:   EADDRINUSE,
	unix.EADDRNOTAVAIL: EADDRNOTAVAIL,
	unix.ENETDOWN:     ENETDOWN,
	unix.ENETUNREACH:  ENETUNREACH,
	unix.ENETRESET:    ENETRESET,
	unix.ECONNABORTED: ECONNABORTED,
	unix.ECONNRESET:   ECONNRESET,
	unix.ENOBUFS:      ENOBUFS,
	unix.EISCONN:      EISCONN,
	unix.ENOTCONN:     ENOTCONN,
	unix.ESHUTDOWN:    ESHUTDOWN,
	unix.ETOOMANYREFS: ETOOMANYREFS,
	unix.ETIMEDOUT:    ETIMEDOUT,
	unix.ECONNREFUSED: ECONNREFUSED,
	unix.EHOSTDOWN:    EHOSTDOWN,
	unix.EHOSTUNREACH: EHOSTUNREACH,
	unix.EALREADY:     EALREADY,
	unix.EINPROGRESS:  EINPROGRESS,
	unix.ESTALE:       ESTALE,
	unix.EDQUOT:       EDQUOT,
	unix.ECANCELED:    ECANCELED,
}

// Syswrap translates the result of a host syscall into this kernel's
// convention: a non-negative value returned verbatim, or -errno on
// failure, mirroring the `syswrap` helper the source this is grounded on
// wraps nearly every passthrough syscall in.
func Syswrap(ret int64, err error) int64 {
	if err == nil {
		return ret
	}
	if errno, ok := err.(unix.Errno); ok {
		if l, ok := darwinToLinuxErrno[errno]; ok {
			return -l
		}
		return -EIO
	}
	return -EIO
}
