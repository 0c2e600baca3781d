package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alexedwards/argon2id"
	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher 单向加盐哈希
type PasswordHasher interface {
	Hash(password string) (string, error)
	// Compare 返回 false, nil 表示密码不匹配
	Compare(hash, password string) (bool, error)
}

// NewPasswordHasher 按算法创建哈希器。两种算法的哈希都能校验，切换算法不影响已有用户登录
func NewPasswordHasher(algorithm string, bcryptCost int) (PasswordHasher, error) {
	switch algorithm {
	case "", "bcrypt":
		if bcryptCost == 0 {
			bcryptCost = bcrypt.DefaultCost
		}
		if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
			return nil, fmt.Errorf("invalid bcrypt cost %d", bcryptCost)
		}
		return &multiHasher{primary: bcryptHasher{cost: bcryptCost}}, nil
	case "argon2id":
		return &multiHasher{primary: argon2Hasher{params: argon2id.DefaultParams}}, nil
	default:
		return nil, fmt.Errorf("unsupported hash algorithm %q", algorithm)
	}
}

type bcryptHasher struct {
	cost int
}

func (h bcryptHasher) Hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		// bcrypt 只接受 72 字节以内的密码
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", ErrInvalidInput
		}
		return "", fmt.Errorf("bcrypt hash: %w", err)
	}
	return string(hashed), nil
}

func (h bcryptHasher) Compare(hash, password string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, fmt.Errorf("bcrypt compare: %w", err)
}

type argon2Hasher struct {
	params *argon2id.Params
}

func (h argon2Hasher) Hash(password string) (string, error) {
	hashed, err := argon2id.CreateHash(password, h.params)
	if err != nil {
		return "", fmt.Errorf("argon2id hash: %w", err)
	}
	return hashed, nil
}

func (h argon2Hasher) Compare(hash, password string) (bool, error) {
	match, err := argon2id.ComparePasswordAndHash(password, hash)
	if err != nil {
		return false, fmt.Errorf("argon2id compare: %w", err)
	}
	return match, nil
}

// multiHasher 用主算法生成哈希，按前缀选择算法校验
type multiHasher struct {
	primary PasswordHasher
}

func (h *multiHasher) Hash(password string) (string, error) {
	return h.primary.Hash(password)
}

func (h *multiHasher) Compare(hash, password string) (bool, error) {
	if strings.HasPrefix(hash, "$argon2id$") {
		return argon2Hasher{}.Compare(hash, password)
	}
	return bcryptHasher{}.Compare(hash, password)
}
