package domain

import "time"

// Post 表示一篇文章。
// AuthorID 只是一个带索引的引用列，数据库层面不加外键约束；
// 作者是否存在由应用逻辑在写入前检查。
type Post struct {
	ID        uint       `gorm:"primaryKey" json:"id"`                 // 文章唯一标识符 (主键)
	Title     string     `gorm:"size:100;index;not null" json:"title"` // 标题
	Content   string     `gorm:"type:text;not null" json:"content"`    // 正文
	Published bool       `gorm:"default:false" json:"published"`       // 是否发布，默认 false
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`     // 创建时间 (GORM 自动填充，不可变)
	UpdatedAt *time.Time `gorm:"autoUpdateTime:false" json:"updated_at"` // 首次更新前为 NULL，每次变更写入时由仓库层刷新
	AuthorID  uint       `gorm:"index;not null" json:"author_id"`      // 作者 ID (引用 User.ID)
}

// PostWithAuthor 是文章列表页使用的查询结果：文章加上作者用户名。
// 不维护双向对象图，作者信息通过查询时 JOIN 获得。
type PostWithAuthor struct {
	Post
	AuthorName string `json:"author"`
}
